package include

import (
	"sort"

	"github.com/juev/envelope/internal/ast"
)

type ErrorKind int

const (
	ErrorFileNotFound ErrorKind = iota
	ErrorCycleDetected
	ErrorParseError
	ErrorReadError
	ErrorFileTooLarge
	ErrorTooDeep
)

type LoadError struct {
	Kind    ErrorKind
	Path    string
	Message string
	Range   ast.Range
}

func (e LoadError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

type Limits struct {
	MaxFileSizeBytes int64
	MaxIncludeDepth  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSizeBytes: 10 * 1024 * 1024,
		MaxIncludeDepth:  50,
	}
}

type ResolvedJournal struct {
	Primary *ast.Journal
	Files   map[string]*ast.Journal
	Order   []string
	Errors  []LoadError
}

func NewResolvedJournal(primary *ast.Journal) *ResolvedJournal {
	return &ResolvedJournal{
		Primary: primary,
		Files:   make(map[string]*ast.Journal),
	}
}

func (r *ResolvedJournal) addFile(path string, journal *ast.Journal) {
	if _, ok := r.Files[path]; ok {
		return
	}
	r.Files[path] = journal
	r.Order = append(r.Order, path)
}

// Merged returns one journal holding the primary file and every included
// file, with transactions and dated directives ordered by date. Entries
// on the same date keep their load order.
func (r *ResolvedJournal) Merged() *ast.Journal {
	merged := &ast.Journal{}
	if r.Primary == nil {
		return merged
	}

	journals := []*ast.Journal{r.Primary}
	for _, path := range r.Order {
		journals = append(journals, r.Files[path])
	}

	for _, j := range journals {
		merged.Transactions = append(merged.Transactions, j.Transactions...)
		merged.Directives = append(merged.Directives, j.Directives...)
		merged.Comments = append(merged.Comments, j.Comments...)
		merged.Includes = append(merged.Includes, j.Includes...)
	}

	sort.SliceStable(merged.Transactions, func(i, k int) bool {
		return merged.Transactions[i].Date.Time().Before(merged.Transactions[k].Date.Time())
	})
	sort.SliceStable(merged.Directives, func(i, k int) bool {
		return directiveTime(merged.Directives[i]) < directiveTime(merged.Directives[k])
	})

	return merged
}

// directiveTime orders undated directives (options) first.
func directiveTime(d ast.Directive) int64 {
	if dated, ok := d.(ast.Dated); ok {
		return dated.GetDate().Time().Unix()
	}
	return -1 << 62
}
