package formatter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// NumberFormat describes how report amounts are written.
type NumberFormat struct {
	DecimalMark rune
	GroupSep    string
	Places      int
}

var DefaultNumberFormat = NumberFormat{DecimalMark: '.', GroupSep: ",", Places: 2}

// ParseNumberFormat derives a format from a sample such as "1,000.00",
// "1 000,00 EUR" or "1000". The rightmost of '.' and ',' is the decimal
// mark; the other one, or a space, groups thousands.
func ParseNumberFormat(sample string) NumberFormat {
	nf := NumberFormat{DecimalMark: '.'}

	number := numberPart(sample)
	if number == "" {
		return DefaultNumberFormat
	}

	lastDot := strings.LastIndex(number, ".")
	lastComma := strings.LastIndex(number, ",")

	mark, other := lastDot, lastComma
	otherSep := ","
	if lastComma > lastDot {
		nf.DecimalMark = ','
		mark, other = lastComma, lastDot
		otherSep = "."
	}

	if mark < 0 {
		if strings.Contains(number, " ") {
			nf.GroupSep = " "
		}
		return nf
	}

	nf.Places = len(number) - mark - 1
	switch {
	case other >= 0:
		nf.GroupSep = otherSep
	case strings.Contains(number[:mark], " "):
		nf.GroupSep = " "
	}
	return nf
}

func numberPart(s string) string {
	start, end := -1, 0
	hasDigit := false

	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == ' ' {
			if start < 0 {
				start = i
			}
			hasDigit = hasDigit || unicode.IsDigit(r)
			end = i + utf8.RuneLen(r)
			continue
		}
		if start >= 0 {
			break
		}
	}

	if start < 0 || !hasDigit {
		return ""
	}
	return strings.TrimSpace(s[start:end])
}

// Format renders d rounded to the format's places with grouped thousands.
func (f NumberFormat) Format(d decimal.Decimal) string {
	str := d.StringFixed(int32(f.Places))

	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")
	intPart, fracPart, _ := strings.Cut(str, ".")

	if f.GroupSep != "" && len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(f.GroupSep)
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	var result strings.Builder
	if negative {
		result.WriteByte('-')
	}
	result.WriteString(intPart)
	if f.Places > 0 {
		result.WriteRune(f.DecimalMark)
		result.WriteString(fracPart)
	}
	return result.String()
}

// Amount renders d followed by the currency.
func (f NumberFormat) Amount(d decimal.Decimal, currency string) string {
	if currency == "" {
		return f.Format(d)
	}
	return f.Format(d) + " " + currency
}

// AlignRight left-pads values to the width of the widest one.
func AlignRight(values []string) []string {
	width := 0
	for _, v := range values {
		width = max(width, utf8.RuneCountInString(v))
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.Repeat(" ", width-utf8.RuneCountInString(v)) + v
	}
	return out
}
