package budget

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Window is the posting date range a report covers.
type Window struct {
	Start time.Time
	End   time.Time
}

type SankeyNode struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	Budget decimal.Decimal `json:"budget" yaml:"budget"`
	Actual decimal.Decimal `json:"actual" yaml:"actual"`
}

// SankeyEdge links two nodes. Value is the child's "budget actual" label.
type SankeyEdge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Value  string `json:"value" yaml:"value"`
}

type Sankey struct {
	Nodes []SankeyNode `json:"nodes" yaml:"nodes"`
	Edges []SankeyEdge `json:"edges" yaml:"edges"`
}

const sankeyRootID = "0"

// PickBucket selects the bucket a window-scoped export starts from: the
// latest month bucket inside the window, otherwise the year bucket of the
// window's end.
func (t *Tree) PickBucket(w Window) (NodeID, error) {
	start := time.Date(w.Start.Year(), w.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(w.End.Year(), w.End.Month(), 1, 0, 0, 0, 0, time.UTC); !m.Before(start); m = m.AddDate(0, -1, 0) {
		if id, ok := t.FindNode(MonthKey(m)); ok {
			return id, nil
		}
	}
	name := YearBucket(w.End.Year())
	if id, ok := t.FindNode(name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: no month or %s bucket in window", ErrNodeNotFound, name)
}

// Sankey exports the subtree at the named node, or at PickBucket(w) when
// name is empty, as a flow graph under a synthetic root. Node ids are built
// from the parent id and the rank of the node among its siblings by
// descending budget.
func (t *Tree) Sankey(name string, w Window) (*Sankey, error) {
	var target NodeID
	if name != "" {
		id, ok := t.FindNode(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
		}
		target = id
	} else {
		id, err := t.PickBucket(w)
		if err != nil {
			return nil, err
		}
		target = id
	}

	if err := t.Summarize(target); err != nil {
		return nil, err
	}

	result := &Sankey{
		Nodes: []SankeyNode{{ID: sankeyRootID, Name: "root"}},
	}
	ids := map[NodeID]string{target: sankeyRootID + ".0"}
	result.Edges = append(result.Edges, t.sankeyEdge(sankeyRootID, ids[target], target))

	err := t.BreadthFirst(target, func(id NodeID) error {
		n := t.nodes[id]
		result.Nodes = append(result.Nodes, SankeyNode{
			ID:     ids[id],
			Name:   n.Name,
			Budget: n.Budget,
			Actual: n.Actual,
		})

		for rank, child := range t.rankedChildren(id) {
			if _, seen := ids[child]; seen {
				continue
			}
			ids[child] = ids[id] + "." + strconv.Itoa(rank)
			result.Edges = append(result.Edges, t.sankeyEdge(ids[id], ids[child], child))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (t *Tree) sankeyEdge(source, target string, child NodeID) SankeyEdge {
	n := t.nodes[child]
	return SankeyEdge{
		Source: source,
		Target: target,
		Value:  n.Budget.StringFixed(2) + " " + n.Actual.StringFixed(2),
	}
}

func (t *Tree) rankedChildren(id NodeID) []NodeID {
	children := append([]NodeID(nil), t.nodes[id].Children()...)
	sort.SliceStable(children, func(i, j int) bool {
		return t.nodes[children[i]].Budget.GreaterThan(t.nodes[children[j]].Budget)
	})
	return children
}
