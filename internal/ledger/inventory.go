package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Inventory maps commodity -> quantity.
type Inventory map[string]decimal.Decimal

func (inv Inventory) Add(commodity string, quantity decimal.Decimal) {
	inv[commodity] = inv[commodity].Add(quantity)
}

func (inv Inventory) IsZero() bool {
	for _, quantity := range inv {
		if !quantity.IsZero() {
			return false
		}
	}
	return true
}

// Commodities returns the commodity names in sorted order.
func (inv Inventory) Commodities() []string {
	names := make([]string, 0, len(inv))
	for name := range inv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reduce converts every position to currency using prices as of date and
// sums them. Commodities without a rate are left out of the total and
// returned as unconverted.
func (inv Inventory) Reduce(currency string, prices *PriceMap, date time.Time) (decimal.Decimal, []string) {
	total := decimal.Zero
	var unconverted []string

	for _, commodity := range inv.Commodities() {
		quantity := inv[commodity]
		if quantity.IsZero() {
			continue
		}
		if commodity == currency {
			total = total.Add(quantity)
			continue
		}
		if prices == nil {
			unconverted = append(unconverted, commodity)
			continue
		}
		rate, ok := prices.Rate(commodity, currency, date)
		if !ok {
			unconverted = append(unconverted, commodity)
			continue
		}
		total = total.Add(quantity.Mul(rate))
	}

	return total, unconverted
}
