package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/juev/envelope/internal/ast"
)

type pair struct {
	base  string
	quote string
}

type pricePoint struct {
	date time.Time
	rate decimal.Decimal
}

// PriceMap holds dated conversion rates between commodity pairs.
type PriceMap struct {
	rates map[pair][]pricePoint
}

func NewPriceMap() *PriceMap {
	return &PriceMap{rates: make(map[pair][]pricePoint)}
}

// BuildPriceMap collects rates from price directives and from the unit
// prices of postings.
func BuildPriceMap(journal *ast.Journal) *PriceMap {
	pm := NewPriceMap()

	for _, d := range journal.Directives {
		if p, ok := d.(ast.PriceDirective); ok {
			pm.Add(p.Commodity, p.Price.Commodity, p.Date.Time(), p.Price.Quantity)
		}
	}

	for i := range journal.Transactions {
		tx := &journal.Transactions[i]
		for j := range tx.Postings {
			p := &tx.Postings[j]
			if p.Amount == nil || p.Price == nil {
				continue
			}
			rate, ok := unitPrice(p)
			if !ok {
				continue
			}
			pm.Add(p.Amount.Commodity, p.Price.Amount.Commodity, tx.Date.Time(), rate)
		}
	}

	pm.sort()
	return pm
}

func unitPrice(p *ast.Posting) (decimal.Decimal, bool) {
	if !p.Price.IsTotal {
		return p.Price.Amount.Quantity, true
	}
	if p.Amount.Quantity.IsZero() {
		return decimal.Zero, false
	}
	return p.Price.Amount.Quantity.Div(p.Amount.Quantity.Abs()), true
}

func (pm *PriceMap) Add(base, quote string, date time.Time, rate decimal.Decimal) {
	if base == "" || quote == "" || base == quote || rate.IsZero() {
		return
	}
	key := pair{base: base, quote: quote}
	pm.rates[key] = append(pm.rates[key], pricePoint{date: date, rate: rate})
}

func (pm *PriceMap) sort() {
	for key := range pm.rates {
		points := pm.rates[key]
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].date.Before(points[j].date)
		})
	}
}

// Rate returns the latest rate from base to quote dated on or before date.
// A zero date means the latest known rate. Inverse pairs are used when no
// direct rate exists.
func (pm *PriceMap) Rate(base, quote string, date time.Time) (decimal.Decimal, bool) {
	if base == quote {
		return decimal.NewFromInt(1), true
	}
	if rate, ok := pm.lookup(pair{base: base, quote: quote}, date); ok {
		return rate, true
	}
	if rate, ok := pm.lookup(pair{base: quote, quote: base}, date); ok {
		return decimal.NewFromInt(1).Div(rate), true
	}
	return decimal.Zero, false
}

func (pm *PriceMap) lookup(key pair, date time.Time) (decimal.Decimal, bool) {
	points := pm.rates[key]
	if len(points) == 0 {
		return decimal.Zero, false
	}
	if date.IsZero() {
		return points[len(points)-1].rate, true
	}
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].date.After(date)
	})
	if idx == 0 {
		return decimal.Zero, false
	}
	return points[idx-1].rate, true
}
