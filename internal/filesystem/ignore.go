package filesystem

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreMatcher applies gitignore-style patterns to paths relative to the
// scan root. A nil matcher ignores nothing.
type IgnoreMatcher struct {
	gi *ignore.GitIgnore
}

// NewIgnoreMatcher compiles patterns. Blank entries are dropped; nil is
// returned when no patterns remain.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &IgnoreMatcher{gi: ignore.CompileIgnoreLines(lines...)}
}

// Ignored reports whether rel (relative to the root) should be skipped.
func (m *IgnoreMatcher) Ignored(rel string, isDir bool) bool {
	if m == nil || rel == "" || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return m.gi.MatchesPath(rel)
}
