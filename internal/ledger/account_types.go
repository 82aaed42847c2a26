package ledger

import (
	"strings"

	"github.com/juev/envelope/internal/ast"
)

type AccountType int

const (
	TypeUnknown AccountType = iota
	TypeAssets
	TypeLiabilities
	TypeEquity
	TypeIncome
	TypeExpenses
)

func (t AccountType) String() string {
	switch t {
	case TypeAssets:
		return "assets"
	case TypeLiabilities:
		return "liabilities"
	case TypeEquity:
		return "equity"
	case TypeIncome:
		return "income"
	case TypeExpenses:
		return "expenses"
	default:
		return "unknown"
	}
}

// AccountTypes maps root account names to account types.
type AccountTypes map[string]AccountType

func DefaultAccountTypes() AccountTypes {
	return AccountTypes{
		"Assets":      TypeAssets,
		"Liabilities": TypeLiabilities,
		"Equity":      TypeEquity,
		"Income":      TypeIncome,
		"Expenses":    TypeExpenses,
	}
}

var renameOptions = map[string]AccountType{
	"name_assets":      TypeAssets,
	"name_liabilities": TypeLiabilities,
	"name_equity":      TypeEquity,
	"name_income":      TypeIncome,
	"name_expenses":    TypeExpenses,
}

// AccountTypesFromOptions applies name_* options found in the journal on
// top of the default root names.
func AccountTypesFromOptions(journal *ast.Journal) AccountTypes {
	types := DefaultAccountTypes()
	for _, d := range journal.Directives {
		opt, ok := d.(ast.OptionDirective)
		if !ok {
			continue
		}
		t, ok := renameOptions[opt.Name]
		if !ok || opt.Value == "" {
			continue
		}
		for root, existing := range types {
			if existing == t {
				delete(types, root)
			}
		}
		types[opt.Value] = t
	}
	return types
}

func (a AccountTypes) TypeOf(account string) AccountType {
	root, _, _ := strings.Cut(account, ":")
	return a[root]
}
