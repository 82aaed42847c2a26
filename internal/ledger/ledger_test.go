package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/parser"
)

func mustParse(t *testing.T, input string) *ast.Journal {
	t.Helper()
	journal, errs := parser.Parse(input)
	require.Empty(t, errs)
	return journal
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestAccountTypes_Defaults(t *testing.T) {
	types := AccountTypesFromOptions(&ast.Journal{})

	assert.Equal(t, TypeIncome, types.TypeOf("Income:Salary"))
	assert.Equal(t, TypeExpenses, types.TypeOf("Expenses:Food"))
	assert.Equal(t, TypeAssets, types.TypeOf("Assets"))
	assert.Equal(t, TypeUnknown, types.TypeOf("Revenue:Salary"))
}

func TestAccountTypes_RenamedRoot(t *testing.T) {
	journal := mustParse(t, `option "name_income" "Revenue"`)
	types := AccountTypesFromOptions(journal)

	assert.Equal(t, TypeIncome, types.TypeOf("Revenue:Salary"))
	assert.Equal(t, TypeUnknown, types.TypeOf("Income:Salary"))
	assert.Equal(t, "income", types.TypeOf("Revenue").String())
}

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name: "single commodity",
			input: `2024-01-15 * "Grocer"
  Expenses:Food  30.00 USD
  Assets:Checking`,
			want: map[string]string{"USD": "-30.00"},
		},
		{
			name: "unit price",
			input: `2024-01-15 * "Trip"
  Expenses:Travel  10 EUR @ 1.10 USD
  Assets:Checking`,
			want: map[string]string{"USD": "-11.00"},
		},
		{
			name: "total price",
			input: `2024-01-15 * "Trip"
  Expenses:Travel  10 EUR @@ 12.00 USD
  Assets:Checking`,
			want: map[string]string{"USD": "-12.00"},
		},
		{
			name: "two residual commodities",
			input: `2024-01-15 * "Mixed"
  Expenses:Food  5 USD
  Expenses:Travel  7 EUR
  Assets:Checking`,
			want: map[string]string{"EUR": "-7.00", "USD": "-5.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := mustParse(t, tt.input)
			tx := Interpolate(journal.Transactions[0])

			got := make(map[string]string)
			for _, p := range tx.Postings {
				require.NotNil(t, p.Amount)
				if p.Account.Name == "Assets:Checking" {
					got[p.Amount.Commodity] = p.Amount.Quantity.StringFixed(2)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpolate_TwoElidedLeftAlone(t *testing.T) {
	journal := mustParse(t, `2024-01-15 * "x"
  Expenses:Food  5 USD
  Assets:Checking
  Assets:Cash`)

	tx := Interpolate(journal.Transactions[0])
	require.Len(t, tx.Postings, 3)
	assert.Nil(t, tx.Postings[1].Amount)
	assert.Nil(t, tx.Postings[2].Amount)
}

func TestPriceMap_Rate(t *testing.T) {
	journal := mustParse(t, `2024-01-01 price EUR 1.10 USD
2024-03-01 price EUR 1.20 USD`)
	pm := BuildPriceMap(journal)

	rate, ok := pm.Rate("EUR", "USD", date(2024, 2, 15))
	require.True(t, ok)
	assert.Equal(t, "1.10", rate.StringFixed(2))

	rate, ok = pm.Rate("EUR", "USD", date(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, "1.20", rate.StringFixed(2))

	rate, ok = pm.Rate("EUR", "USD", time.Time{})
	require.True(t, ok)
	assert.Equal(t, "1.20", rate.StringFixed(2))

	_, ok = pm.Rate("EUR", "USD", date(2023, 12, 31))
	assert.False(t, ok)

	rate, ok = pm.Rate("USD", "EUR", date(2024, 1, 2))
	require.True(t, ok)
	assert.Equal(t, "0.9091", rate.StringFixed(4))

	_, ok = pm.Rate("GBP", "USD", time.Time{})
	assert.False(t, ok)

	rate, ok = pm.Rate("USD", "USD", time.Time{})
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestPriceMap_PostingPrices(t *testing.T) {
	journal := mustParse(t, `2024-02-01 * "Trip"
  Expenses:Travel  20 EUR @@ 22.00 USD
  Assets:Checking`)
	pm := BuildPriceMap(journal)

	rate, ok := pm.Rate("EUR", "USD", date(2024, 2, 1))
	require.True(t, ok)
	assert.Equal(t, "1.10", rate.StringFixed(2))
}

func TestInventory_Reduce(t *testing.T) {
	pm := NewPriceMap()
	pm.Add("EUR", "USD", date(2024, 1, 1), decimal.RequireFromString("1.5"))

	inv := make(Inventory)
	inv.Add("USD", decimal.NewFromInt(10))
	inv.Add("EUR", decimal.NewFromInt(4))
	inv.Add("JPY", decimal.NewFromInt(1000))

	total, unconverted := inv.Reduce("USD", pm, date(2024, 6, 1))
	assert.Equal(t, "16.00", total.StringFixed(2))
	assert.Equal(t, []string{"JPY"}, unconverted)

	total, unconverted = inv.Reduce("USD", nil, time.Time{})
	assert.Equal(t, "10.00", total.StringFixed(2))
	assert.Equal(t, []string{"EUR", "JPY"}, unconverted)
}

func TestInventory_IsZero(t *testing.T) {
	inv := make(Inventory)
	assert.True(t, inv.IsZero())
	inv.Add("USD", decimal.NewFromInt(5))
	inv.Add("USD", decimal.NewFromInt(-5))
	assert.True(t, inv.IsZero())

	inv.Add("EUR", decimal.NewFromInt(1))
	assert.False(t, inv.IsZero())
}

func TestBook_ClosingBalances(t *testing.T) {
	journal := mustParse(t, `option "operating_currency" "USD"

2023-12-31 * "Opening"
  Assets:Checking  1000.00 USD
  Equity:Opening

2024-01-15 * "Grocer"
  Expenses:Food  30.00 USD
  Assets:Checking`)

	book := NewBook(journal)
	assert.Equal(t, "USD", book.OperatingCurrency())
	assert.True(t, book.IsIncome("Income:Salary"))
	assert.False(t, book.IsIncome("Expenses:Food"))

	balances := book.ClosingBalances(date(2024, 1, 1))
	require.Contains(t, balances, "Assets:Checking")
	assert.Equal(t, "1000.00", balances["Assets:Checking"]["USD"].StringFixed(2))
	assert.Equal(t, "-1000.00", balances["Equity:Opening"]["USD"].StringFixed(2))
	assert.NotContains(t, balances, "Expenses:Food")

	balances = book.ClosingBalances(date(2024, 2, 1))
	assert.Equal(t, "970.00", balances["Assets:Checking"]["USD"].StringFixed(2))

	value, unconverted := book.Reduce(balances["Assets:Checking"], "USD", date(2024, 2, 1))
	assert.Equal(t, "970.00", value.StringFixed(2))
	assert.Empty(t, unconverted)
}

func TestBook_NoOperatingCurrency(t *testing.T) {
	book := NewBook(&ast.Journal{})
	assert.Equal(t, "", book.OperatingCurrency())
	assert.Empty(t, book.Transactions())
	value, unconverted := book.Reduce(Inventory{"EUR": decimal.NewFromInt(2)}, "USD", date(2024, 1, 1))
	assert.True(t, value.IsZero())
	assert.Equal(t, []string{"EUR"}, unconverted)
}

func TestWeight(t *testing.T) {
	journal := mustParse(t, `2024-03-01 * "Mixed"
  Expenses:Travel  10 EUR @ 1.10 USD
  Expenses:Travel  -20 EUR @@ 22.00 USD
  Expenses:Food  5.00 USD
  Assets:Checking`)
	postings := journal.Transactions[0].Postings

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"per unit price", "11.00 USD", true},
		{"total price keeps sign", "-22.00 USD", true},
		{"plain units", "5.00 USD", true},
		{"elided amount", "", false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := Weight(&postings[i])
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, w.Quantity.StringFixed(2)+" "+w.Commodity)
		})
	}
}
