package envelope

import (
	"github.com/shopspring/decimal"
)

const (
	RowAvailIncome  = "Avail Income"
	RowOverspent    = "Overspent"
	RowBudgeted     = "Budgeted"
	RowActivity     = "Activity"
	RowAvailable    = "Available"
	RowToBeBudgeted = "To Be Budgeted"
)

var incomeRows = []string{
	RowAvailIncome,
	RowOverspent,
	RowBudgeted,
	RowActivity,
	RowAvailable,
	RowToBeBudgeted,
}

// Cell holds the three figures of one category in one month.
type Cell struct {
	Budgeted  decimal.Decimal `json:"budgeted" yaml:"budgeted"`
	Activity  decimal.Decimal `json:"activity" yaml:"activity"`
	Available decimal.Decimal `json:"available" yaml:"available"`
}

type EnvelopeRow struct {
	Category string `json:"category" yaml:"category"`
	Cells    []Cell `json:"cells" yaml:"cells"`
}

// EnvelopeTable has one row per category and one cell per month; Cells
// are aligned with Months.
type EnvelopeTable struct {
	Months []string      `json:"months" yaml:"months"`
	Rows   []EnvelopeRow `json:"rows" yaml:"rows"`
}

// Cell returns the cell of category in month.
func (t *EnvelopeTable) Cell(category, month string) (Cell, bool) {
	col := indexOf(t.Months, month)
	if col < 0 {
		return Cell{}, false
	}
	for _, row := range t.Rows {
		if row.Category == category {
			return row.Cells[col], true
		}
	}
	return Cell{}, false
}

func (t *EnvelopeTable) Categories() []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row.Category)
	}
	return out
}

type IncomeRow struct {
	Label  string            `json:"label" yaml:"label"`
	Values []decimal.Decimal `json:"values" yaml:"values"`
}

// IncomeTable has the fixed summary rows, one value per month.
type IncomeTable struct {
	Months []string    `json:"months" yaml:"months"`
	Rows   []IncomeRow `json:"rows" yaml:"rows"`
}

func newIncomeTable(months []string) *IncomeTable {
	t := &IncomeTable{Months: months}
	for _, label := range incomeRows {
		t.Rows = append(t.Rows, IncomeRow{Label: label, Values: zeros(len(months))})
	}
	return t
}

// Value returns the figure of row label in month, or zero.
func (t *IncomeTable) Value(label, month string) decimal.Decimal {
	col := indexOf(t.Months, month)
	if col < 0 {
		return decimal.Zero
	}
	row := t.row(label)
	if row == nil {
		return decimal.Zero
	}
	return row.Values[col]
}

func (t *IncomeTable) row(label string) *IncomeRow {
	for i := range t.Rows {
		if t.Rows[i].Label == label {
			return &t.Rows[i]
		}
	}
	return nil
}

func (t *IncomeTable) set(label string, col int, v decimal.Decimal) {
	t.row(label).Values[col] = v
}

func (t *IncomeTable) add(label string, col int, v decimal.Decimal) {
	row := t.row(label)
	row.Values[col] = row.Values[col].Add(v)
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return -1
}
