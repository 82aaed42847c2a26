package include

import (
	"fmt"
	"os"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/parser"
)

type Loader struct {
	cache  map[string]*ast.Journal
	limits Limits
}

func NewLoader() *Loader {
	return &Loader{
		cache:  make(map[string]*ast.Journal),
		limits: DefaultLimits(),
	}
}

func (l *Loader) SetLimits(limits Limits) {
	defaults := DefaultLimits()
	if limits.MaxFileSizeBytes <= 0 {
		limits.MaxFileSizeBytes = defaults.MaxFileSizeBytes
	}
	if limits.MaxIncludeDepth <= 0 {
		limits.MaxIncludeDepth = defaults.MaxIncludeDepth
	}
	l.limits = limits
}

func (l *Loader) Load(path string) (*ResolvedJournal, []LoadError) {
	content, lerr := l.readFile(path, ast.Range{})
	if lerr != nil {
		return nil, []LoadError{*lerr}
	}

	return l.LoadFromContent(path, content)
}

func (l *Loader) LoadFromContent(path, content string) (*ResolvedJournal, []LoadError) {
	result := NewResolvedJournal(nil)
	errors := l.loadInto(result, path, content, make(map[string]bool), 0)
	result.Errors = errors
	return result, errors
}

func (l *Loader) loadInto(result *ResolvedJournal, path, content string, visiting map[string]bool, depth int) []LoadError {
	var errors []LoadError

	journal, parseErrs := parser.Parse(content)
	for _, e := range parseErrs {
		pos := ast.Position{
			Line:   e.Pos.Line,
			Column: e.Pos.Column,
			Offset: e.Pos.Offset,
		}
		errors = append(errors, LoadError{
			Kind:    ErrorParseError,
			Path:    path,
			Message: e.Error(),
			Range:   ast.Range{Start: pos, End: pos},
		})
	}

	if result.Primary == nil {
		result.Primary = journal
	} else {
		result.addFile(path, journal)
	}

	return append(errors, l.walkIncludes(result, path, journal, visiting, depth)...)
}

func (l *Loader) walkIncludes(result *ResolvedJournal, path string, journal *ast.Journal, visiting map[string]bool, depth int) []LoadError {
	var errors []LoadError

	visiting[path] = true
	defer delete(visiting, path)

	for _, inc := range journal.Includes {
		for _, includePath := range ExpandPaths(path, inc.Path) {
			errors = append(errors, l.loadInclude(result, path, includePath, inc.Range, visiting, depth)...)
		}
	}

	return errors
}

func (l *Loader) loadInclude(result *ResolvedJournal, from, includePath string, r ast.Range, visiting map[string]bool, depth int) []LoadError {
	if visiting[includePath] {
		return []LoadError{{
			Kind:    ErrorCycleDetected,
			Path:    includePath,
			Message: fmt.Sprintf("cycle detected: %s includes %s", from, includePath),
			Range:   r,
		}}
	}

	if depth+1 > l.limits.MaxIncludeDepth {
		return []LoadError{{
			Kind:    ErrorTooDeep,
			Path:    includePath,
			Message: fmt.Sprintf("include depth exceeds %d", l.limits.MaxIncludeDepth),
			Range:   r,
		}}
	}

	if _, done := result.Files[includePath]; done {
		return nil
	}

	if cached, ok := l.cache[includePath]; ok {
		result.addFile(includePath, cached)
		return l.walkIncludes(result, includePath, cached, visiting, depth+1)
	}

	content, lerr := l.readFile(includePath, r)
	if lerr != nil {
		return []LoadError{*lerr}
	}

	errors := l.loadInto(result, includePath, content, visiting, depth+1)
	if j, ok := result.Files[includePath]; ok {
		l.cache[includePath] = j
	}
	return errors
}

func (l *Loader) readFile(path string, r ast.Range) (string, *LoadError) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &LoadError{
			Kind:    ErrorFileNotFound,
			Path:    path,
			Message: fmt.Sprintf("cannot read file: %v", err),
			Range:   r,
		}
	}
	if info.Size() > l.limits.MaxFileSizeBytes {
		return "", &LoadError{
			Kind:    ErrorFileTooLarge,
			Path:    path,
			Message: fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), l.limits.MaxFileSizeBytes),
			Range:   r,
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", &LoadError{
			Kind:    ErrorReadError,
			Path:    path,
			Message: fmt.Sprintf("cannot read file: %v", err),
			Range:   r,
		}
	}
	return string(content), nil
}

func (l *Loader) ClearCache() {
	l.cache = make(map[string]*ast.Journal)
}

func (l *Loader) InvalidateFile(path string) {
	delete(l.cache, path)
}
