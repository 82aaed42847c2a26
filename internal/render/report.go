package render

import (
	"strings"
	"time"

	"github.com/juev/envelope/internal/budget"
	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/envelope"
)

// ReportView is the serialized shape of an envelope report.
type ReportView struct {
	Currency  string                  `json:"currency" yaml:"currency"`
	Start     string                  `json:"start" yaml:"start"`
	End       string                  `json:"end" yaml:"end"`
	Months    []string                `json:"months" yaml:"months"`
	Income    []envelope.IncomeRow    `json:"income" yaml:"income"`
	Envelopes *envelope.EnvelopeTable `json:"envelopes" yaml:"envelopes"`
	Warnings  []string                `json:"warnings" yaml:"warnings"`
	Errors    []string                `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func NewReportView(r *envelope.Report) ReportView {
	view := ReportView{
		Currency:  r.Currency,
		Start:     r.Window.Start.Format(time.DateOnly),
		End:       r.Window.End.Format(time.DateOnly),
		Months:    r.Months,
		Envelopes: r.Envelopes,
		Warnings:  make([]string, 0, len(r.Warnings)),
	}
	if r.Income != nil {
		view.Income = r.Income.Rows
	}
	for _, w := range r.Warnings {
		view.Warnings = append(view.Warnings, w.String())
	}
	for _, err := range r.Errors {
		view.Errors = append(view.Errors, err.Error())
	}
	return view
}

// YearIntervals groups the interval series of one year.
type YearIntervals struct {
	Year      int               `json:"year" yaml:"year"`
	Intervals []budget.Interval `json:"intervals" yaml:"intervals"`
}

func (r *Renderer) Report(rep *envelope.Report) error {
	if r.Format != config.FormatTable {
		return r.encode(NewReportView(rep))
	}

	if err := r.title("Income (" + rep.Currency + ")"); err != nil {
		return err
	}
	income := grid{headers: append([]string{""}, rep.Income.Months...)}
	for _, row := range rep.Income.Rows {
		cells := []string{row.Label}
		for _, v := range row.Values {
			cells = append(cells, r.amount(v))
		}
		income.rows = append(income.rows, cells)
	}
	if err := r.writeGrid(income); err != nil {
		return err
	}

	if err := r.title("\nEnvelopes"); err != nil {
		return err
	}
	envelopes := grid{headers: []string{"Category"}}
	for _, month := range rep.Envelopes.Months {
		envelopes.headers = append(envelopes.headers,
			month+" "+strings.ToLower(envelope.RowBudgeted),
			month+" "+strings.ToLower(envelope.RowActivity),
			month+" "+strings.ToLower(envelope.RowAvailable),
		)
	}
	for _, row := range rep.Envelopes.Rows {
		cells := []string{row.Category}
		for _, c := range row.Cells {
			cells = append(cells, r.amount(c.Budgeted), r.amount(c.Activity), r.amount(c.Available))
		}
		envelopes.rows = append(envelopes.rows, cells)
	}
	return r.writeGrid(envelopes)
}

// Tree writes the subtree at start. Plain table output keeps the
// "name budget | actual" outline.
func (r *Renderer) Tree(tree *budget.Tree, start budget.NodeID) error {
	if r.Format == config.FormatTable && !r.Styled {
		return tree.Render(r.Out, start)
	}

	entries, err := tree.Outline(start)
	if err != nil {
		return err
	}
	if r.Format != config.FormatTable {
		return r.encode(entries)
	}

	g := grid{headers: []string{"Node", "Budget", "Actual"}}
	for _, e := range entries {
		g.rows = append(g.rows, []string{
			strings.Repeat("  ", e.Depth) + e.Name,
			r.amount(e.Budget),
			r.amount(e.Actual),
		})
	}
	return r.writeGrid(g)
}

func (r *Renderer) Sankey(s *budget.Sankey) error {
	if r.Format != config.FormatTable {
		return r.encode(s)
	}

	nodes := grid{headers: []string{"ID", "Name", "Budget", "Actual"}}
	for _, n := range s.Nodes {
		nodes.rows = append(nodes.rows, []string{n.ID, n.Name, r.amount(n.Budget), r.amount(n.Actual)})
	}
	if err := r.writeGrid(nodes); err != nil {
		return err
	}

	edges := grid{headers: []string{"Source", "Target", "Value"}}
	for _, e := range s.Edges {
		edges.rows = append(edges.rows, []string{e.Source, e.Target, e.Value})
	}
	if err := r.title(""); err != nil {
		return err
	}
	return r.writeGrid(edges)
}

func (r *Renderer) Intervals(years []YearIntervals) error {
	if r.Format != config.FormatTable {
		return r.encode(years)
	}

	g := grid{headers: []string{"Start", "Balance", "Budget", "Actual"}}
	for _, y := range years {
		for _, iv := range y.Intervals {
			row := []string{iv.Start.Format(time.DateOnly), r.amount(iv.Balance)}
			for _, b := range iv.Balances {
				row = append(row, r.amount(b.Amount))
			}
			g.rows = append(g.rows, row)
		}
	}
	return r.writeGrid(g)
}
