package include

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolvePath makes includePath absolute relative to the directory of the
// including file, expanding a leading "~".
func ResolvePath(basePath, includePath string) string {
	if strings.HasPrefix(includePath, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			if includePath == "~" {
				return home
			}
			includePath = filepath.Join(home, includePath[2:])
		}
	}

	if filepath.IsAbs(includePath) {
		return filepath.Clean(includePath)
	}

	return filepath.Clean(filepath.Join(filepath.Dir(basePath), includePath))
}

// ExpandPaths resolves includePath and expands glob patterns into the
// sorted list of matching files. A pattern without matches yields the
// resolved path itself so the caller reports it as missing.
func ExpandPaths(basePath, includePath string) []string {
	resolved := ResolvePath(basePath, includePath)
	if !strings.ContainsAny(resolved, "*?[") {
		return []string{resolved}
	}

	matches, err := filepath.Glob(resolved)
	if err != nil || len(matches) == 0 {
		return []string{resolved}
	}
	sort.Strings(matches)
	return matches
}
