package envelope

import (
	"fmt"
	"time"
)

type WarningKind int

const (
	WarningUnconvertiblePosting WarningKind = iota
	WarningInvalidCurrency
	WarningUnknownDirective
	WarningInvalidSetting
)

func (k WarningKind) String() string {
	switch k {
	case WarningUnconvertiblePosting:
		return "unconvertible posting"
	case WarningInvalidCurrency:
		return "invalid currency"
	case WarningUnknownDirective:
		return "unknown directive"
	case WarningInvalidSetting:
		return "invalid setting"
	default:
		return "warning"
	}
}

// Warning describes input the builder skipped or replaced. Date and Account
// are set when the warning concerns a specific entry.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
	Date    time.Time   `json:"date,omitempty" yaml:"date,omitempty"`
	Account string      `json:"account,omitempty" yaml:"account,omitempty"`
}

func (w Warning) String() string {
	if w.Date.IsZero() {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s %s: %s", w.Date.Format(time.DateOnly), w.Kind, w.Message)
}

func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
