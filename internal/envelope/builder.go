package envelope

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/budget"
	"github.com/juev/envelope/internal/ledger"
)

const (
	DefaultCurrency = "USD"
	directiveType   = "envelope"
	incomeAccount   = "Income"
)

// Ledger answers the account, price and balance queries the builder needs.
type Ledger interface {
	Transactions() []ast.Transaction
	IsIncome(account string) bool
	OperatingCurrency() string
	ClosingBalances(before time.Time) map[string]ledger.Inventory
	Reduce(inv ledger.Inventory, currency string, date time.Time) (decimal.Decimal, []string)
}

type Options struct {
	// Currency selects the "envelope<Currency>" directives and is the
	// report currency unless a currency directive overrides it.
	Currency string
	// Start and End override the report window. End is rounded to the
	// end of its month.
	Start time.Time
	End   time.Time
	// Today anchors the default window end. Zero means time.Now.
	Today  time.Time
	Logger *zap.Logger
	Ledger Ledger
}

type Report struct {
	Currency  string
	Window    budget.Window
	Months    []string
	Settings  Settings
	Income    *IncomeTable
	Envelopes *EnvelopeTable
	Tree      *budget.Tree
	Warnings  []Warning
	Errors    []error
}

// Builder computes one envelope report from a journal. A Builder is used
// for a single Build call.
type Builder struct {
	journal *ast.Journal
	opts    Options
	logger  *zap.Logger
	ledger  Ledger
	etype   string

	settings    Settings
	allocations []budget.Directive
	warnings    []Warning
	errors      []error
}

func New(journal *ast.Journal, opts Options) *Builder {
	if journal == nil {
		journal = &ast.Journal{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := opts.Ledger
	if l == nil {
		l = ledger.NewBook(journal)
	}
	return &Builder{
		journal: journal,
		opts:    opts,
		logger:  logger,
		ledger:  l,
		etype:   directiveType + opts.Currency,
	}
}

// Build runs the full pipeline. Malformed allocations are dropped and
// reported in Report.Errors; a tree that cannot be traversed fails the
// build.
func (b *Builder) Build() (*Report, error) {
	b.readDirectives()

	currency := b.resolveCurrency()
	window := b.window()
	months := enumerateMonths(window)

	b.logger.Debug("building envelope report",
		zap.String("currency", currency),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Int("months", len(months)),
	)

	cells := make(map[string][]Cell)
	income := newIncomeTable(months)
	tree := budget.NewTree()

	b.accumulateActivity(cells, income, months, window, currency)
	b.applyAllocations(tree, cells, months, window)
	b.addStartingBalance(income, window, currency)
	computeTotals(cells, income, months)

	if err := syncTree(tree, cells, months); err != nil {
		return nil, fmt.Errorf("summarize budget tree: %w", err)
	}

	return &Report{
		Currency:  currency,
		Window:    window,
		Months:    months,
		Settings:  b.settings,
		Income:    income,
		Envelopes: envelopeTable(cells, months),
		Tree:      tree,
		Warnings:  b.warnings,
		Errors:    b.errors,
	}, nil
}

func (b *Builder) readDirectives() {
	for _, d := range b.journal.Directives {
		custom, ok := d.(ast.CustomDirective)
		if !ok || custom.Type != b.etype {
			continue
		}
		date := custom.Date.Time()

		if len(custom.Values) == 0 {
			b.warn(Warning{Kind: WarningUnknownDirective, Message: "envelope directive without keyword", Date: date})
			continue
		}

		name := valueText(custom.Values[0])
		kw := ParseKeyword(name)
		switch kw {
		case KeywordUnknown:
			b.warn(Warning{
				Kind:    WarningUnknownDirective,
				Message: fmt.Sprintf("unknown envelope keyword %q", name),
				Date:    date,
			})
		case KeywordAllocate, KeywordTask:
			values := make([]string, 0, len(custom.Values)-1)
			for _, v := range custom.Values[1:] {
				values = append(values, valueText(v))
			}
			kind := budget.KindAllocate
			if kw == KeywordTask {
				kind = budget.KindTask
			}
			b.allocations = append(b.allocations, budget.Directive{Date: date, Kind: kind, Values: values})
		default:
			if err := b.settings.apply(kw, custom.Values[1:]); err != nil {
				b.warn(Warning{Kind: WarningInvalidSetting, Message: err.Error(), Date: date})
			}
		}
	}
}

func (b *Builder) resolveCurrency() string {
	currency := b.settings.Currency
	if currency == "" {
		currency = b.opts.Currency
	}
	if currency == "" {
		currency = b.ledger.OperatingCurrency()
	}
	if currency == "" {
		return DefaultCurrency
	}
	if len(currency) != 3 {
		b.warn(Warning{
			Kind:    WarningInvalidCurrency,
			Message: fmt.Sprintf("invalid operating currency %q, defaulting to %s", currency, DefaultCurrency),
		})
		return DefaultCurrency
	}
	return currency
}

func (b *Builder) window() budget.Window {
	today := b.opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}

	start := b.opts.Start
	if start.IsZero() {
		start = b.settings.StartDate
	}
	if start.IsZero() {
		start = b.earliest(today)
	}

	end := b.opts.End
	if end.IsZero() {
		end = monthStart(today).AddDate(0, b.settings.MonthsAhead, 0)
	}

	w := budget.Window{Start: monthStart(start), End: monthEnd(end)}
	if w.End.Before(w.Start) {
		w.End = monthEnd(w.Start)
	}
	return w
}

// earliest returns the date of the first transaction or allocation.
func (b *Builder) earliest(fallback time.Time) time.Time {
	var first time.Time
	for _, tx := range b.ledger.Transactions() {
		if d := tx.Date.Time(); first.IsZero() || d.Before(first) {
			first = d
		}
	}
	for _, a := range b.allocations {
		if first.IsZero() || a.Date.Before(first) {
			first = a.Date
		}
	}
	if first.IsZero() {
		return fallback
	}
	return first
}

func enumerateMonths(w budget.Window) []string {
	var months []string
	for m := monthStart(w.Start); !m.After(w.End); m = m.AddDate(0, 1, 0) {
		months = append(months, budget.MonthKey(m))
	}
	return months
}

func inWindow(w budget.Window, t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (b *Builder) touchesBudgetAccount(tx *ast.Transaction) bool {
	for i := range tx.Postings {
		if b.settings.IsBudgetAccount(tx.Postings[i].Account.Name) {
			return true
		}
	}
	return false
}

func (b *Builder) accumulateActivity(cells map[string][]Cell, income *IncomeTable, months []string, w budget.Window, currency string) {
	balances := make(map[string]map[string]ledger.Inventory)

	transactions := b.ledger.Transactions()
	for i := range transactions {
		tx := &transactions[i]
		date := tx.Date.Time()
		if !inWindow(w, date) || !b.touchesBudgetAccount(tx) {
			continue
		}
		month := budget.MonthKey(date)

		for j := range tx.Postings {
			p := &tx.Postings[j]
			if p.Amount == nil {
				continue
			}

			account := b.settings.MapAccount(p.Account.Name)
			if b.ledger.IsIncome(account) || b.settings.IsIncomeAccount(account) {
				account = incomeAccount
			} else if b.settings.IsBudgetAccount(p.Account.Name) {
				continue
			}

			amount := *p.Amount
			if amount.Commodity != currency {
				if p.Price == nil {
					b.warn(Warning{
						Kind:    WarningUnconvertiblePosting,
						Message: fmt.Sprintf("dropped %s %s: no price in %s", amount.Quantity, amount.Commodity, currency),
						Date:    date,
						Account: p.Account.Name,
					})
					continue
				}
				amount, _ = ledger.Weight(p)
			}

			byMonth := balances[account]
			if byMonth == nil {
				byMonth = make(map[string]ledger.Inventory)
				balances[account] = byMonth
			}
			inv := byMonth[month]
			if inv == nil {
				inv = make(ledger.Inventory)
				byMonth[month] = inv
			}
			inv.Add(amount.Commodity, amount.Quantity)
		}
	}

	for _, account := range sortedKeys(balances) {
		for col, month := range months {
			inv, ok := balances[account][month]
			if !ok {
				continue
			}
			end := monthEnd(mustMonth(month))
			total, unconverted := b.ledger.Reduce(inv, currency, end)
			for _, commodity := range unconverted {
				b.warn(Warning{
					Kind:    WarningUnconvertiblePosting,
					Message: fmt.Sprintf("no %s price for %s in %s", currency, commodity, month),
					Date:    end,
					Account: account,
				})
			}
			activity := total.RoundBank(2).Neg()

			if account == incomeAccount {
				income.add(RowAvailIncome, col, activity)
				continue
			}
			row := ensureRow(cells, account, len(months))
			row[col].Activity = activity
		}
	}
}

func (b *Builder) applyAllocations(tree *budget.Tree, cells map[string][]Cell, months []string, w budget.Window) {
	columns := make(map[string]int, len(months))
	for i, m := range months {
		columns[m] = i
	}

	for _, d := range b.allocations {
		if _, err := tree.Apply(d); err != nil {
			b.errors = append(b.errors, err)
			b.logger.Error("dropping envelope directive", zap.Error(err))
			continue
		}
		if d.Kind != budget.KindAllocate || !inWindow(w, d.Date) {
			continue
		}

		category := d.Values[len(d.Values)-2]
		amount := decimal.RequireFromString(d.Values[len(d.Values)-1])
		row := ensureRow(cells, category, len(months))
		row[columns[budget.MonthKey(d.Date)]].Budgeted = amount
	}
}

func (b *Builder) addStartingBalance(income *IncomeTable, w budget.Window, currency string) {
	if len(income.Months) == 0 {
		return
	}

	balances := b.ledger.ClosingBalances(w.Start)
	total := decimal.Zero
	for _, account := range sortedKeys(balances) {
		if !b.settings.IsBudgetAccount(account) {
			continue
		}
		value, unconverted := b.ledger.Reduce(balances[account], currency, w.Start)
		for _, commodity := range unconverted {
			b.warn(Warning{
				Kind:    WarningUnconvertiblePosting,
				Message: fmt.Sprintf("starting balance: no %s price for %s", currency, commodity),
				Date:    w.Start,
				Account: account,
			})
		}
		total = total.Add(value)
	}

	income.add(RowAvailIncome, 0, total.RoundBank(2))
}

// computeTotals fills available cells and the derived income rows.
// Available does not roll over between months.
func computeTotals(cells map[string][]Cell, income *IncomeTable, months []string) {
	categories := sortedKeys(cells)

	for _, c := range categories {
		for col := range cells[c] {
			cell := &cells[c][col]
			cell.Available = cell.Budgeted.Add(cell.Activity)
		}
	}

	for col := range months {
		overspent := decimal.Zero
		if col > 0 {
			for _, c := range categories {
				if prev := cells[c][col-1].Available; prev.IsNegative() {
					overspent = overspent.Add(prev)
				}
			}
		}
		budgeted, activity, available := decimal.Zero, decimal.Zero, decimal.Zero
		for _, c := range categories {
			budgeted = budgeted.Add(cells[c][col].Budgeted)
			activity = activity.Add(cells[c][col].Activity)
			available = available.Add(cells[c][col].Available)
		}

		income.set(RowOverspent, col, overspent.Neg())
		income.set(RowBudgeted, col, budgeted.Neg())
		income.set(RowActivity, col, activity)
		income.set(RowAvailable, col, available)
		income.set(RowToBeBudgeted, col,
			income.Value(RowAvailIncome, months[col]).Sub(budgeted).Sub(overspent.Neg()))
	}
}

// envelopeTable drops the months in which nothing was budgeted.
func envelopeTable(cells map[string][]Cell, months []string) *EnvelopeTable {
	categories := sortedKeys(cells)

	var keep []int
	for col := range months {
		total := decimal.Zero
		for _, c := range categories {
			total = total.Add(cells[c][col].Budgeted)
		}
		if !total.IsZero() {
			keep = append(keep, col)
		}
	}

	table := &EnvelopeTable{Months: make([]string, 0, len(keep))}
	for _, col := range keep {
		table.Months = append(table.Months, months[col])
	}
	for _, c := range categories {
		row := EnvelopeRow{Category: c, Cells: make([]Cell, 0, len(keep))}
		for _, col := range keep {
			row.Cells = append(row.Cells, cells[c][col])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// syncTree writes monthly activity into the tree, adds it up per year for
// existing budget-YYYY task buckets and summarizes.
func syncTree(tree *budget.Tree, cells map[string][]Cell, months []string) error {
	yearly := make(map[int]map[string]decimal.Decimal)

	for _, c := range sortedKeys(cells) {
		for col, month := range months {
			activity := cells[c][col].Activity
			if activity.IsZero() {
				continue
			}

			id, ok := tree.Lookup(budget.ScopeMonthly, month, c)
			if !ok {
				monthNode := tree.CreateOrGet(budget.ScopeMonthly, month, month)
				tree.AddChild(tree.ScopeRoot(budget.ScopeMonthly), monthNode)
				id = tree.CreateOrGet(budget.ScopeMonthly, month, c)
				tree.AddChild(monthNode, id)
			}
			tree.SetActual(id, activity)

			year := mustMonth(month).Year()
			if yearly[year] == nil {
				yearly[year] = make(map[string]decimal.Decimal)
			}
			yearly[year][c] = yearly[year][c].Add(activity)
		}
	}

	for year, totals := range yearly {
		bucket := budget.YearBucket(year)
		for c, total := range totals {
			if id, ok := tree.Lookup(budget.ScopeTasks, bucket, c); ok {
				tree.SetActual(id, total)
			}
		}
	}

	return tree.Summarize(tree.Root())
}

func (b *Builder) warn(w Warning) {
	b.warnings = append(b.warnings, w)

	fields := []zap.Field{zap.Stringer("kind", w.Kind)}
	if !w.Date.IsZero() {
		fields = append(fields, zap.Time("date", w.Date))
	}
	if w.Account != "" {
		fields = append(fields, zap.String("account", w.Account))
	}
	b.logger.Warn(w.Message, fields...)
}

func ensureRow(cells map[string][]Cell, category string, n int) []Cell {
	row, ok := cells[category]
	if !ok {
		row = make([]Cell, n)
		for i := range row {
			row[i] = Cell{Budgeted: decimal.Zero, Activity: decimal.Zero, Available: decimal.Zero}
		}
		cells[category] = row
	}
	return row
}

func mustMonth(month string) time.Time {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		panic(fmt.Sprintf("envelope: bad month key %q", month))
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
