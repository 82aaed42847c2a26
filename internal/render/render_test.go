package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/envelope/internal/budget"
	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/envelope"
	"github.com/juev/envelope/internal/formatter"
	"github.com/juev/envelope/internal/parser"
)

const journal = `2024-01-01 custom "envelope" "start date" "2024-01"
2024-01-01 custom "envelope" "budget account" "Assets:Checking"
2024-01-01 custom "envelope" "mapping" "Expenses:Groceries" "Food"
2024-01-01 custom "envelope" "allocate" "Food" 50

2024-01-15 * "Grocer"
  Expenses:Groceries  30.00 USD
  Assets:Checking
`

func buildReport(t *testing.T) *envelope.Report {
	t.Helper()
	j, errs := parser.Parse(journal)
	require.Empty(t, errs)
	today := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	r, err := envelope.New(j, envelope.Options{Today: today}).Build()
	require.NoError(t, err)
	return r
}

func newRenderer(format string) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, format, formatter.DefaultNumberFormat), &buf
}

func TestNew_BufferIsNotStyled(t *testing.T) {
	r, _ := newRenderer("")
	assert.False(t, r.Styled)
	assert.Equal(t, config.FormatTable, r.Format)
}

func TestPlainGrid(t *testing.T) {
	out := plainGrid(grid{
		headers: []string{"", "2024-01"},
		rows: [][]string{
			{"Budgeted", "-50.00"},
			{"Activity", "-30.00"},
		},
	})

	expected := "          2024-01\n" +
		"Budgeted   -50.00\n" +
		"Activity   -30.00"
	assert.Equal(t, expected, out)
}

func TestStyledGrid(t *testing.T) {
	out := styledGrid(grid{
		headers: []string{"Node", "Budget"},
		rows:    [][]string{{"Food", "-50.00"}},
	})
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "-50.00")
	assert.Contains(t, out, "Node")
}

func TestRenderer_ReportTable(t *testing.T) {
	r, buf := newRenderer(config.FormatTable)
	require.NoError(t, r.Report(buildReport(t)))

	out := buf.String()
	assert.Contains(t, out, "Income (USD)")
	assert.Contains(t, out, "Envelopes")
	assert.Contains(t, out, "2024-01 available")

	var foodLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Food") {
			foodLine = line
		}
	}
	require.NotEmpty(t, foodLine)
	assert.Equal(t, []string{"Food", "50.00", "-30.00", "20.00"}, strings.Fields(foodLine))
}

func TestRenderer_ReportJSON(t *testing.T) {
	r, buf := newRenderer(config.FormatJSON)
	require.NoError(t, r.Report(buildReport(t)))

	var view ReportView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))

	assert.Equal(t, "USD", view.Currency)
	assert.Equal(t, "2024-01-01", view.Start)
	assert.Equal(t, "2024-01-31", view.End)
	assert.Equal(t, []string{"2024-01"}, view.Months)
	assert.Empty(t, view.Warnings)

	require.Len(t, view.Envelopes.Rows, 1)
	assert.Equal(t, "Food", view.Envelopes.Rows[0].Category)
	assert.Equal(t, "20.00", view.Envelopes.Rows[0].Cells[0].Available.StringFixed(2))

	labels := make([]string, 0, len(view.Income))
	for _, row := range view.Income {
		labels = append(labels, row.Label)
	}
	assert.Contains(t, labels, envelope.RowToBeBudgeted)
}

func TestRenderer_ReportYAML(t *testing.T) {
	r, buf := newRenderer(config.FormatYAML)
	require.NoError(t, r.Report(buildReport(t)))

	out := buf.String()
	assert.Contains(t, out, "currency: USD")
	assert.Contains(t, out, "category: Food")
}

func TestRenderer_Tree(t *testing.T) {
	rep := buildReport(t)

	r, buf := newRenderer(config.FormatTable)
	month, ok := rep.Tree.FindNode("2024-01")
	require.True(t, ok)
	require.NoError(t, r.Tree(rep.Tree, month))

	assert.Equal(t, "2024-01 50.00 | 30.00\n  Food 50.00 | 30.00\n", buf.String())
}

func TestRenderer_TreeJSON(t *testing.T) {
	rep := buildReport(t)

	r, buf := newRenderer(config.FormatJSON)
	month, _ := rep.Tree.FindNode("2024-01")
	require.NoError(t, r.Tree(rep.Tree, month))

	var entries []budget.OutlineEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Food", entries[1].Name)
	assert.Equal(t, 1, entries[1].Depth)
}

func TestRenderer_Sankey(t *testing.T) {
	rep := buildReport(t)
	s, err := rep.Tree.Sankey("", rep.Window)
	require.NoError(t, err)

	r, buf := newRenderer(config.FormatTable)
	require.NoError(t, r.Sankey(s))

	out := buf.String()
	assert.Contains(t, out, "0.0.0")
	assert.Contains(t, out, "50.00 30.00")
}

func TestRenderer_Intervals(t *testing.T) {
	rep := buildReport(t)
	intervals, err := rep.Tree.Intervals(2024)
	require.NoError(t, err)

	r, buf := newRenderer(config.FormatTable)
	require.NoError(t, r.Intervals([]YearIntervals{{Year: 2024, Intervals: intervals}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Start", "Balance", "Budget", "Actual"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2024-01-01", "20.00", "50.00", "30.00"}, strings.Fields(lines[1]))
}

func TestRenderer_UnsupportedFormat(t *testing.T) {
	r, _ := newRenderer("xml")
	err := r.Report(buildReport(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
