package budget

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// OutlineEntry is one node of a pre-order walk together with its depth
// below the walk's start.
type OutlineEntry struct {
	Name   string          `json:"name" yaml:"name"`
	Depth  int             `json:"depth" yaml:"depth"`
	Budget decimal.Decimal `json:"budget" yaml:"budget"`
	Actual decimal.Decimal `json:"actual" yaml:"actual"`
}

func (t *Tree) Outline(start NodeID) ([]OutlineEntry, error) {
	var out []OutlineEntry
	err := t.DepthFirst(start, func(id NodeID, depth int) error {
		n := t.nodes[id]
		out = append(out, OutlineEntry{Name: n.Name, Depth: depth, Budget: n.Budget, Actual: n.Actual})
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Render writes an indented outline of the subtree at start, one
// "name budget | actual" line per node.
func (t *Tree) Render(w io.Writer, start NodeID) error {
	entries, err := t.Outline(start)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s%s %s | %s\n",
			strings.Repeat("  ", e.Depth), e.Name, e.Budget.StringFixed(2), e.Actual.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}
