package budget

import (
	"github.com/shopspring/decimal"
)

// Summarize rolls budget and actual totals up from the leaves below start.
// Leaves take the absolute value of their own amounts, internal nodes the
// sum of their children. Sentinel nodes keep their values. Totals are
// rounded to two decimals, half to even, so running it again changes
// nothing.
func (t *Tree) Summarize(start NodeID) error {
	return t.DepthFirst(start, nil, func(id NodeID, _ int) error {
		n := t.nodes[id]
		if n.sentinel {
			return nil
		}

		if n.IsLeaf() {
			n.Budget = n.Budget.Abs().RoundBank(2)
			n.Actual = n.Actual.Abs().RoundBank(2)
			return nil
		}

		budget, actual := decimal.Zero, decimal.Zero
		for _, child := range n.Children() {
			c := t.nodes[child]
			if c.sentinel {
				continue
			}
			budget = budget.Add(c.Budget)
			actual = actual.Add(c.Actual)
		}
		n.Budget = budget.RoundBank(2)
		n.Actual = actual.RoundBank(2)
		return nil
	})
}
