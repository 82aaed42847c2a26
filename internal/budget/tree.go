package budget

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Scope int

const (
	ScopeRoot Scope = iota
	ScopeMonthly
	ScopeTasks
)

func (s Scope) String() string {
	switch s {
	case ScopeMonthly:
		return "monthly"
	case ScopeTasks:
		return "tasks"
	default:
		return "root"
	}
}

// Key addresses a node. Directives resolving to the same key share the
// node.
type Key struct {
	Scope  Scope
	Period string
	Name   string
}

type NodeID int

type Node struct {
	Name   string
	Key    Key
	Budget decimal.Decimal
	Actual decimal.Decimal

	children OrderedSet
	sentinel bool
}

func (n *Node) Children() []NodeID {
	return n.children.Items()
}

func (n *Node) IsLeaf() bool {
	return n.children.Len() == 0
}

// IsSentinel reports whether the node is a fixed root or scope label that
// is never aggregated.
func (n *Node) IsSentinel() bool {
	return n.sentinel
}

// Tree owns every node of one report computation. Nodes are addressed by
// NodeID, an index into the arena, and looked up by Key.
type Tree struct {
	nodes []*Node
	index map[Key]NodeID
	root  NodeID
}

func NewTree() *Tree {
	t := &Tree{index: make(map[Key]NodeID)}
	t.root = t.createOrGet(Key{Scope: ScopeRoot, Name: "root"})
	t.nodes[t.root].sentinel = true
	return t
}

func (t *Tree) Root() NodeID {
	return t.root
}

func (t *Tree) Node(id NodeID) *Node {
	return t.nodes[id]
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// CreateOrGet returns the node registered for (scope, period, name),
// creating it first if needed.
func (t *Tree) CreateOrGet(scope Scope, period, name string) NodeID {
	return t.createOrGet(Key{Scope: scope, Period: period, Name: name})
}

func (t *Tree) createOrGet(key Key) NodeID {
	if id, ok := t.index[key]; ok {
		return id
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{Name: key.Name, Key: key})
	t.index[key] = id
	return id
}

func (t *Tree) Lookup(scope Scope, period, name string) (NodeID, bool) {
	id, ok := t.index[Key{Scope: scope, Period: period, Name: name}]
	return id, ok
}

// ScopeRoot returns the sentinel node of a scope, linked under the root.
func (t *Tree) ScopeRoot(scope Scope) NodeID {
	if scope == ScopeRoot {
		return t.root
	}
	id := t.CreateOrGet(scope, scope.String(), scope.String())
	t.nodes[id].sentinel = true
	t.AddChild(t.root, id)
	return id
}

// AddChild links child under parent. Adding an existing child is a no-op.
func (t *Tree) AddChild(parent, child NodeID) {
	t.nodes[parent].children.Add(child)
}

func (t *Tree) SetBudget(id NodeID, v decimal.Decimal) {
	t.nodes[id].Budget = v
}

func (t *Tree) SetActual(id NodeID, v decimal.Decimal) {
	t.nodes[id].Actual = v
}

// VisitFunc is called for each node with its depth below the traversal
// start. A non-nil error stops the traversal.
type VisitFunc func(id NodeID, depth int) error

// DepthFirst visits every node reachable from start, calling pre before
// and post after the node's children. Reaching a node a second time in
// the same call fails with a CycleError.
func (t *Tree) DepthFirst(start NodeID, pre, post VisitFunc) error {
	visited := make([]bool, len(t.nodes))
	return t.depthFirst(start, 0, visited, pre, post)
}

func (t *Tree) depthFirst(id NodeID, depth int, visited []bool, pre, post VisitFunc) error {
	if visited[id] {
		return &CycleError{Node: t.nodes[id].Name}
	}
	visited[id] = true

	if pre != nil {
		if err := pre(id, depth); err != nil {
			return err
		}
	}

	for _, child := range t.nodes[id].Children() {
		if err := t.depthFirst(child, depth+1, visited, pre, post); err != nil {
			return err
		}
	}

	if post != nil {
		if err := post(id, depth); err != nil {
			return err
		}
	}
	return nil
}

// BreadthFirst visits the nodes reachable from start in level order.
// Children are discovered in insertion order; a node is visited once.
func (t *Tree) BreadthFirst(start NodeID, visit func(id NodeID) error) error {
	discovered := make([]bool, len(t.nodes))
	discovered[start] = true
	queue := []NodeID{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if err := visit(id); err != nil {
			return err
		}

		for _, child := range t.nodes[id].Children() {
			if discovered[child] {
				continue
			}
			discovered[child] = true
			queue = append(queue, child)
		}
	}
	return nil
}

var errStopWalk = errors.New("stop walk")

// FindNode returns the first node named name in pre-order from the root.
func (t *Tree) FindNode(name string) (NodeID, bool) {
	var found NodeID
	ok := false

	err := t.DepthFirst(t.root, func(id NodeID, _ int) error {
		if t.nodes[id].Name == name {
			found, ok = id, true
			return errStopWalk
		}
		return nil
	}, nil)
	if err != nil && !errors.Is(err, errStopWalk) {
		return t.findLinear(name)
	}
	return found, ok
}

// findLinear scans the arena in creation order. Used when the tree holds a
// shared node and cannot be walked depth-first.
func (t *Tree) findLinear(name string) (NodeID, bool) {
	for i, n := range t.nodes {
		if n.Name == name {
			return NodeID(i), true
		}
	}
	return 0, false
}
