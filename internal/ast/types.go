package ast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Range struct {
	Start Position
	End   Position
}

type Position struct {
	Line   int
	Column int
	Offset int
}

type Journal struct {
	Transactions []Transaction
	Directives   []Directive
	Comments     []Comment
	Includes     []Include
}

type Transaction struct {
	Date      Date
	Flag      Flag
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []Posting
	Comments  []Comment
	Range     Range
}

type Date struct {
	Year  int
	Month int
	Day   int
	Range Range
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type Flag int

const (
	FlagNone Flag = iota
	FlagPending
	FlagCleared
)

type Posting struct {
	Flag    Flag
	Account Account
	Amount  *Amount
	Price   *Price
	Comment string
	Range   Range
}

type Account struct {
	Name  string
	Parts []string
	Range Range
}

type Amount struct {
	Quantity  decimal.Decimal
	Commodity string
	Range     Range
}

// Price is the "@" (per unit) or "@@" (total) annotation of a posting.
type Price struct {
	Amount  Amount
	IsTotal bool
	Range   Range
}

type Directive interface {
	directive()
	GetRange() Range
}

// Dated is implemented by directives that carry a date.
type Dated interface {
	GetDate() Date
}

type OpenDirective struct {
	Date        Date
	Account     Account
	Commodities []string
	Range       Range
}

func (OpenDirective) directive()        {}
func (d OpenDirective) GetRange() Range { return d.Range }
func (d OpenDirective) GetDate() Date   { return d.Date }

type CloseDirective struct {
	Date    Date
	Account Account
	Range   Range
}

func (CloseDirective) directive()        {}
func (d CloseDirective) GetRange() Range { return d.Range }
func (d CloseDirective) GetDate() Date   { return d.Date }

type PriceDirective struct {
	Date      Date
	Commodity string
	Price     Amount
	Range     Range
}

func (PriceDirective) directive()        {}
func (d PriceDirective) GetRange() Range { return d.Range }
func (d PriceDirective) GetDate() Date   { return d.Date }

type OptionDirective struct {
	Name  string
	Value string
	Range Range
}

func (OptionDirective) directive()        {}
func (d OptionDirective) GetRange() Range { return d.Range }

// CustomDirective is `<date> custom "<type>" <values...>`.
type CustomDirective struct {
	Date   Date
	Type   string
	Values []CustomValue
	Range  Range
}

func (CustomDirective) directive()        {}
func (d CustomDirective) GetRange() Range { return d.Range }
func (d CustomDirective) GetDate() Date   { return d.Date }

type ValueKind int

const (
	ValueString ValueKind = iota
	ValueAccount
	ValueNumber
	ValueAmount
	ValueDate
	ValueBool
)

type CustomValue struct {
	Kind      ValueKind
	Text      string
	Number    decimal.Decimal
	Commodity string
	Bool      bool
	Range     Range
}

// String renders the value the way it would be written in a directive,
// without quotes.
func (v CustomValue) String() string {
	switch v.Kind {
	case ValueNumber:
		return v.Number.String()
	case ValueAmount:
		return v.Number.String() + " " + v.Commodity
	case ValueBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.Text
	}
}

// IsNumeric reports whether the value carries a number.
func (v CustomValue) IsNumeric() bool {
	return v.Kind == ValueNumber || v.Kind == ValueAmount
}

type Include struct {
	Path  string
	Range Range
}

func (Include) directive()        {}
func (i Include) GetRange() Range { return i.Range }

type Comment struct {
	Text  string
	Range Range
}
