package world

import (
	"path"
	"path/filepath"
	"strings"
)

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isSkippedDir reports whether a directory must not be descended into.
// rel is relative to the walk root. Patterns are plain names ("node_modules"),
// relative prefixes ("vendor/cache") or globs ("build-*", "tmp/*").
func isSkippedDir(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		// Glob pattern
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, name); ok {
				return true
			}
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			// Handle directory globs like "vendor/*"
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		// Simple dir name
		if name == p {
			return true
		}
		// Relative path or prefix of one
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
