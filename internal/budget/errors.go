package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNodeNotFound = errors.New("budget node not found")

// CycleError is returned when a traversal reaches a node it has already
// entered during the same call.
type CycleError struct {
	Node string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("budget tree: node %q reached twice during traversal", e.Node)
}

type MalformedDirectiveError struct {
	Date   time.Time
	Kind   DirectiveKind
	Values []string
	Reason string
}

func (e *MalformedDirectiveError) Error() string {
	return fmt.Sprintf("%s %s [%s]: %s", e.Date.Format(time.DateOnly), e.Kind, strings.Join(e.Values, " "), e.Reason)
}
