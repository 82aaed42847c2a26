package envelope

// Keyword is the second value of an envelope custom directive.
type Keyword int

const (
	KeywordUnknown Keyword = iota
	KeywordStartDate
	KeywordBudgetAccount
	KeywordMapping
	KeywordIncomeAccount
	KeywordCurrency
	KeywordNegativeRollover
	KeywordMonthsAhead
	KeywordAllocate
	KeywordTask
)

var keywordNames = map[string]Keyword{
	"start date":        KeywordStartDate,
	"budget account":    KeywordBudgetAccount,
	"mapping":           KeywordMapping,
	"income account":    KeywordIncomeAccount,
	"currency":          KeywordCurrency,
	"negative rollover": KeywordNegativeRollover,
	"months ahead":      KeywordMonthsAhead,
	"allocate":          KeywordAllocate,
	"task":              KeywordTask,
}

func ParseKeyword(s string) Keyword {
	return keywordNames[s]
}

func (k Keyword) String() string {
	for name, kw := range keywordNames {
		if kw == k {
			return name
		}
	}
	return "unknown"
}
