package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/juev/envelope/internal/ast"
)

// Book answers the account-type, price and balance queries of a single
// journal. Elided posting amounts are interpolated once at construction.
type Book struct {
	transactions []ast.Transaction
	types        AccountTypes
	prices       *PriceMap
	currencies   []string
}

func NewBook(journal *ast.Journal) *Book {
	b := &Book{
		types:  AccountTypesFromOptions(journal),
		prices: BuildPriceMap(journal),
	}

	b.transactions = make([]ast.Transaction, 0, len(journal.Transactions))
	for _, tx := range journal.Transactions {
		b.transactions = append(b.transactions, Interpolate(tx))
	}

	for _, d := range journal.Directives {
		if opt, ok := d.(ast.OptionDirective); ok && opt.Name == "operating_currency" {
			b.currencies = append(b.currencies, opt.Value)
		}
	}

	return b
}

// Transactions returns the journal's transactions with interpolated
// postings, in journal order.
func (b *Book) Transactions() []ast.Transaction {
	return b.transactions
}

func (b *Book) IsIncome(account string) bool {
	return b.types.TypeOf(account) == TypeIncome
}

// OperatingCurrency returns the first operating_currency option, or "".
func (b *Book) OperatingCurrency() string {
	if len(b.currencies) == 0 {
		return ""
	}
	return b.currencies[0]
}

// ClosingBalances returns the per-account inventories of every posting
// dated strictly before the given date.
func (b *Book) ClosingBalances(before time.Time) map[string]Inventory {
	balances := make(map[string]Inventory)

	for i := range b.transactions {
		tx := &b.transactions[i]
		if !tx.Date.Time().Before(before) {
			continue
		}
		for j := range tx.Postings {
			p := &tx.Postings[j]
			if p.Amount == nil {
				continue
			}
			inv := balances[p.Account.Name]
			if inv == nil {
				inv = make(Inventory)
				balances[p.Account.Name] = inv
			}
			inv.Add(p.Amount.Commodity, p.Amount.Quantity)
		}
	}

	return balances
}

// Reduce converts an inventory to currency with the book's prices.
func (b *Book) Reduce(inv Inventory, currency string, date time.Time) (decimal.Decimal, []string) {
	return inv.Reduce(currency, b.prices, date)
}
