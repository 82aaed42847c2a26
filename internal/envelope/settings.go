package envelope

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/juev/envelope/internal/ast"
)

// Mapping redirects accounts matching Pattern to Target.
type Mapping struct {
	Pattern *regexp.Regexp
	Target  string
}

// Settings are read once from the envelope custom directives of a journal.
type Settings struct {
	StartDate        time.Time
	Currency         string
	BudgetAccounts   []*regexp.Regexp
	Mappings         []Mapping
	IncomeAccounts   []*regexp.Regexp
	NegativeRollover bool
	MonthsAhead      int
}

// compilePattern anchors the pattern at the start of the account name.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}

func matchAny(patterns []*regexp.Regexp, account string) bool {
	for _, re := range patterns {
		if re.MatchString(account) {
			return true
		}
	}
	return false
}

func (s *Settings) IsBudgetAccount(account string) bool {
	return matchAny(s.BudgetAccounts, account)
}

func (s *Settings) IsIncomeAccount(account string) bool {
	return matchAny(s.IncomeAccounts, account)
}

// MapAccount returns the target of the first matching mapping, or account
// unchanged.
func (s *Settings) MapAccount(account string) string {
	for _, m := range s.Mappings {
		if m.Pattern.MatchString(account) {
			return m.Target
		}
	}
	return account
}

// apply updates the settings from one directive. Allocation keywords are
// not settings and are ignored here.
func (s *Settings) apply(kw Keyword, values []ast.CustomValue) error {
	switch kw {
	case KeywordStartDate:
		if len(values) < 1 {
			return fmt.Errorf("start date: missing value")
		}
		date, err := parseMonth(valueText(values[0]))
		if err != nil {
			return fmt.Errorf("start date: %w", err)
		}
		s.StartDate = date

	case KeywordBudgetAccount, KeywordIncomeAccount:
		if len(values) < 1 {
			return fmt.Errorf("%s: missing pattern", kw)
		}
		re, err := compilePattern(valueText(values[0]))
		if err != nil {
			return fmt.Errorf("%s: %w", kw, err)
		}
		if kw == KeywordBudgetAccount {
			s.BudgetAccounts = append(s.BudgetAccounts, re)
		} else {
			s.IncomeAccounts = append(s.IncomeAccounts, re)
		}

	case KeywordMapping:
		if len(values) < 2 {
			return fmt.Errorf("mapping: expected pattern and target")
		}
		re, err := compilePattern(valueText(values[0]))
		if err != nil {
			return fmt.Errorf("mapping: %w", err)
		}
		s.Mappings = append(s.Mappings, Mapping{Pattern: re, Target: valueText(values[1])})

	case KeywordCurrency:
		if len(values) < 1 {
			return fmt.Errorf("currency: missing value")
		}
		s.Currency = valueText(values[0])

	case KeywordNegativeRollover:
		if len(values) < 1 {
			return fmt.Errorf("negative rollover: missing value")
		}
		s.NegativeRollover = valueText(values[0]) == "allow"

	case KeywordMonthsAhead:
		if len(values) < 1 || !values[0].IsNumeric() || !values[0].Number.IsInteger() {
			return fmt.Errorf("months ahead: expected an integer")
		}
		s.MonthsAhead = int(values[0].Number.IntPart())
	}
	return nil
}

// valueText returns the plain text of a directive value. Amounts drop
// their commodity.
func valueText(v ast.CustomValue) string {
	if v.IsNumeric() {
		return v.Number.String()
	}
	return v.String()
}

// parseMonth accepts YYYY-MM or YYYY-MM-DD and returns the first day of
// that month.
func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := "2006-01"
	if len(s) == len(time.DateOnly) {
		layout = time.DateOnly
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q", s)
	}
	return monthStart(t), nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, -1)
}
