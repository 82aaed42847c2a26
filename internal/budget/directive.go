package budget

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DirectiveKind int

const (
	KindAllocate DirectiveKind = iota
	KindTask
)

func (k DirectiveKind) String() string {
	if k == KindTask {
		return "task"
	}
	return "allocate"
}

// Directive is an allocate or task entry: path segments followed by the
// budgeted amount as the last value.
type Directive struct {
	Date   time.Time
	Kind   DirectiveKind
	Values []string
}

const yearBucketPrefix = "budget-"

// MonthKey formats the YYYY-MM bucket name of t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func YearBucket(year int) string {
	return fmt.Sprintf("%s%04d", yearBucketPrefix, year)
}

// ParseYearBucket reports whether name is a budget-YYYY bucket and returns
// its year.
func ParseYearBucket(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, yearBucketPrefix)
	if !ok || len(rest) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return year, true
}

// Apply resolves the directive to a chain of nodes, links the chain under
// its scope root and sets the deepest node's budget. A repeated key
// replaces the previous budget. It returns the first node of the chain.
func (t *Tree) Apply(d Directive) (NodeID, error) {
	if len(d.Values) < 2 {
		return 0, &MalformedDirectiveError{
			Date:   d.Date,
			Kind:   d.Kind,
			Values: d.Values,
			Reason: "expected at least one path segment and an amount",
		}
	}

	amount, err := decimal.NewFromString(d.Values[len(d.Values)-1])
	if err != nil {
		return 0, &MalformedDirectiveError{
			Date:   d.Date,
			Kind:   d.Kind,
			Values: d.Values,
			Reason: fmt.Sprintf("invalid amount %q", d.Values[len(d.Values)-1]),
		}
	}
	segments := d.Values[:len(d.Values)-1]

	var scope Scope
	var first NodeID
	var period string

	switch d.Kind {
	case KindTask:
		scope = ScopeTasks
		task := segments[0]
		segments = segments[1:]
		if _, ok := ParseYearBucket(task); ok {
			period = task
			first = t.CreateOrGet(scope, task, task)
		} else {
			period = task + "/" + MonthKey(d.Date)
			first = t.CreateOrGet(scope, "", task)
		}
	default:
		scope = ScopeMonthly
		period = MonthKey(d.Date)
		first = t.CreateOrGet(scope, period, period)
	}

	t.AddChild(t.ScopeRoot(scope), first)

	last := first
	for _, seg := range segments {
		next := t.CreateOrGet(scope, period, seg)
		t.AddChild(last, next)
		last = next
	}
	t.SetBudget(last, amount)

	return first, nil
}
