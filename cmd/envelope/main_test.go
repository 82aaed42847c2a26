package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/envelope/internal/render"
)

const testJournal = `2024-01-01 custom "envelope" "budget account" "Assets:Checking"
2024-01-01 custom "envelope" "allocate" "Expenses:Food" 50
2024-02-01 custom "envelope" "allocate" "Expenses:Food" 60
2023-06-01 custom "envelope" "allocate" "Expenses:Food" 10

2024-01-15 * "Grocer"
  Expenses:Food  30.00 USD
  Assets:Checking
`

func setupJournal(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "main.beancount")
	require.NoError(t, os.WriteFile(path, []byte(testJournal), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReportJSON(t *testing.T) {
	path := setupJournal(t)

	out, err := run(t, "report", "-f", path, "--start", "2024-01", "--end", "2024-02", "--format", "json")
	require.NoError(t, err)

	var view render.ReportView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, []string{"2024-01", "2024-02"}, view.Months)
	food, ok := view.Envelopes.Cell("Expenses:Food", "2024-02")
	require.True(t, ok)
	assert.Equal(t, "60.00", food.Budgeted.StringFixed(2))
}

func TestReportTable(t *testing.T) {
	path := setupJournal(t)

	out, err := run(t, "report", "-f", path, "--start", "2024-01", "--end", "2024-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Income (USD)")
	assert.Contains(t, out, "Expenses:Food")
}

func TestTreeSubtree(t *testing.T) {
	path := setupJournal(t)

	out, err := run(t, "tree", "2024-01", "-f", path, "--start", "2024-01", "--end", "2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-01 50.00 | 30.00\n  Expenses:Food 50.00 | 30.00\n", out)
}

func TestTreeUnknownNode(t *testing.T) {
	path := setupJournal(t)

	_, err := run(t, "tree", "Nowhere", "-f", path, "--start", "2024-01", "--end", "2024-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSankeyYAML(t *testing.T) {
	path := setupJournal(t)

	out, err := run(t, "sankey", "-f", path, "--start", "2024-01", "--end", "2024-02", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "0.0.0")
	assert.Contains(t, out, "edges:")
}

func TestIntervalsSeveralYears(t *testing.T) {
	path := setupJournal(t)

	out, err := run(t, "intervals", "2024", "2023", "-f", path, "--format", "json")
	require.NoError(t, err)

	var years []render.YearIntervals
	require.NoError(t, json.Unmarshal([]byte(out), &years))
	require.Len(t, years, 2)
	assert.Equal(t, 2024, years[0].Year)
	assert.Len(t, years[0].Intervals, 2)
	assert.Equal(t, 2023, years[1].Year)
	require.Len(t, years[1].Intervals, 1)
	assert.Equal(t, "10.00", years[1].Intervals[0].Balance.StringFixed(2))
}

func TestConfigFile(t *testing.T) {
	path := setupJournal(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("journal: "+path+"\nformat: json\n"), 0o644))

	out, err := run(t, "report", "--config", cfgPath, "--start", "2024-01", "--end", "2024-01")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestErrors(t *testing.T) {
	path := setupJournal(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no journal", []string{"report"}, "no journal"},
		{"bad start", []string{"report", "-f", path, "--start", "Jan"}, "--start"},
		{"bad format", []string{"report", "-f", path, "--format", "xml"}, "unknown output format"},
		{"bad year", []string{"intervals", "twenty", "-f", path}, "invalid year"},
		{"missing file", []string{"report", "-f", path + ".missing"}, "load journal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--config", "/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "envelope dev (commit: none, built: unknown)\n", out)
}

func TestParseMonth(t *testing.T) {
	m, err := parseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, 3, int(m.Month()))

	m, err = parseMonth("")
	require.NoError(t, err)
	assert.True(t, m.IsZero())

	_, err = parseMonth("03/2024")
	assert.Error(t, err)
}
