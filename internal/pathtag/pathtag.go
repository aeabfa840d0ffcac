// Package pathtag derives tag names from the directories a file lives in.
//
// A file at <root>/funny/lighthearted/video.mp4 yields the tags "funny" and
// "lighthearted". Files directly under the root, and paths that are not
// inside the root, yield no tags.
package pathtag

import (
	"path/filepath"
	"strings"
)

// Derive returns the directory segments of path relative to root, outermost
// first, with duplicates removed. Both '/' and '\' separate segments.
func Derive(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.HasPrefix(rel, "../") {
		return nil
	}

	parts := strings.FieldsFunc(rel, isSeparator)
	if len(parts) < 2 {
		return nil
	}

	var tags []string
	seen := make(map[string]struct{}, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		p = strings.TrimSpace(p)
		if p == "" || p == "." {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
