package budget

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type IntervalBalance struct {
	Name   string          `json:"name" yaml:"name"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// Interval is one point of the budget time series.
type Interval struct {
	Start    time.Time         `json:"start" yaml:"start"`
	Balance  decimal.Decimal   `json:"balance" yaml:"balance"`
	Balances []IntervalBalance `json:"balances" yaml:"balances"`
	Meta     map[string]string `json:"meta" yaml:"meta"`
}

// Intervals lists, in breadth-first order, the month buckets of year and
// its budget-YYYY bucket. Each entry is stamped with a monthly cursor that
// starts on January 1 and carries budget - actual as its balance.
func (t *Tree) Intervals(year int) ([]Interval, error) {
	if err := t.Summarize(t.root); err != nil {
		return nil, err
	}

	monthPrefix := fmt.Sprintf("%04d-", year)
	bucket := YearBucket(year)
	cursor := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	var result []Interval
	err := t.BreadthFirst(t.root, func(id NodeID) error {
		n := t.nodes[id]
		if !isMonthOf(n.Name, monthPrefix) && n.Name != bucket {
			return nil
		}
		result = append(result, Interval{
			Start:   cursor,
			Balance: n.Budget.Sub(n.Actual),
			Balances: []IntervalBalance{
				{Name: "budget", Amount: n.Budget},
				{Name: "actual", Amount: n.Actual},
			},
			Meta: map[string]string{},
		})
		cursor = cursor.AddDate(0, 1, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isMonthOf(name, prefix string) bool {
	if len(name) != 7 || !strings.HasPrefix(name, prefix) {
		return false
	}
	_, err := time.Parse("2006-01", name)
	return err == nil
}
