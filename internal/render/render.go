package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/formatter"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	numberStyle   = cellStyle.Align(lipgloss.Right)
	negativeStyle = numberStyle.Foreground(lipgloss.Color("#E74C3C"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C6370"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

// Renderer writes reports in one output format. Tables are drawn with
// lipgloss when Styled is set and as aligned plain text otherwise.
type Renderer struct {
	Out    io.Writer
	Format string
	Number formatter.NumberFormat
	Styled bool
}

// New returns a renderer that styles table output only when out is a
// terminal.
func New(out io.Writer, format string, nf formatter.NumberFormat) *Renderer {
	if format == "" {
		format = config.FormatTable
	}
	return &Renderer{
		Out:    out,
		Format: format,
		Number: nf,
		Styled: IsTerminal(out),
	}
}

func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Renderer) encode(v any) error {
	switch r.Format {
	case config.FormatJSON:
		enc := json.NewEncoder(r.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		enc := yaml.NewEncoder(r.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", r.Format)
	}
}

func (r *Renderer) title(text string) error {
	if r.Styled {
		text = titleStyle.Render(text)
	}
	_, err := fmt.Fprintln(r.Out, text)
	return err
}

// grid is a table whose first column is a label and whose other columns
// hold amounts.
type grid struct {
	headers []string
	rows    [][]string
}

func (r *Renderer) amount(d decimal.Decimal) string {
	return r.Number.Format(d)
}

func (r *Renderer) writeGrid(g grid) error {
	var out string
	if r.Styled {
		out = styledGrid(g)
	} else {
		out = plainGrid(g)
	}
	_, err := fmt.Fprintln(r.Out, out)
	return err
}

func styledGrid(g grid) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(g.headers...).
		Rows(g.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case row >= 0 && row < len(g.rows) && strings.HasPrefix(g.rows[row][col], "-"):
				return negativeStyle
			default:
				return numberStyle
			}
		})
	return t.String()
}

func plainGrid(g grid) string {
	if len(g.headers) == 0 {
		return ""
	}

	columns := make([][]string, len(g.headers))
	for col, header := range g.headers {
		values := make([]string, 0, len(g.rows)+1)
		values = append(values, header)
		for _, row := range g.rows {
			values = append(values, row[col])
		}
		if col == 0 {
			columns[col] = alignLeft(values)
		} else {
			columns[col] = formatter.AlignRight(values)
		}
	}

	var b strings.Builder
	for line := 0; line <= len(g.rows); line++ {
		cells := make([]string, len(columns))
		for col := range columns {
			cells[col] = columns[col][line]
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		if line < len(g.rows) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func alignLeft(values []string) []string {
	width := 0
	for _, v := range values {
		width = max(width, utf8.RuneCountInString(v))
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v + strings.Repeat(" ", width-utf8.RuneCountInString(v))
	}
	return out
}
