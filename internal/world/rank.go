package world

import (
	"sort"
	"strings"

	"nlfind/internal/types"
)

// Rank orders entries in place and returns them: names equal to the raw
// query (case-insensitive, trimmed) first, then newest first. Remaining ties
// are broken by full path so the order is deterministic.
func Rank(entries []types.FileEntry, rawText string) []types.FileEntry {
	want := strings.TrimSpace(rawText)
	exact := func(e types.FileEntry) bool {
		return want != "" && strings.EqualFold(e.Name, want)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ea, eb := exact(a), exact(b); ea != eb {
			return ea
		}
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.After(b.ModifiedAt)
		}
		return a.FullPath < b.FullPath
	})
	return entries
}
