package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"nlfind/internal/core"
	"nlfind/internal/perception"
	"nlfind/internal/types"
)

var styles = struct {
	dir     lipgloss.Style
	file    lipgloss.Style
	meta    lipgloss.Style
	header  lipgloss.Style
	warn    lipgloss.Style
	plan    lipgloss.Style
	rule    lipgloss.Style
	keyword lipgloss.Style
}{
	dir:     lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")).Bold(true),
	file:    lipgloss.NewStyle(),
	meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")),
	header:  lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
	plan:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true),
	rule:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2a3850")),
	keyword: lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac")),
}

func printResult(w io.Writer, res *core.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(w, styles.header.Render(fmt.Sprintf("%d result(s) under %s", len(res.Entries), res.Root)))
	for _, e := range res.Entries {
		fmt.Fprintln(w, formatEntry(e, res.Root))
	}
	if res.Truncated {
		fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf("stopped at %d results; narrow the query to see more", res.Stats.Matched)))
	}
	if res.Plan.Action.Mutating() {
		fmt.Fprintln(w, styles.plan.Render(res.Outcome.Summary))
	}
	fmt.Fprintln(w, styles.meta.Render(fmt.Sprintf("%s classifier, %d dirs scanned, %d skipped, %s",
		res.Source, res.Stats.DirsScanned, res.Stats.Skipped, res.Elapsed.Round(time.Millisecond))))
	return nil
}

func formatEntry(e types.FileEntry, root string) string {
	rel, err := filepath.Rel(root, e.FullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = e.FullPath
	}
	if e.IsDirectory {
		return fmt.Sprintf("%s  %s",
			styles.dir.Render(rel+string(filepath.Separator)),
			styles.meta.Render(humanize.Time(e.ModifiedAt)))
	}
	return fmt.Sprintf("%s  %s",
		styles.file.Render(rel),
		styles.meta.Render(fmt.Sprintf("%s, %s", humanize.IBytes(e.SizeBytes), humanize.Time(e.ModifiedAt))))
}

func printQuery(w io.Writer, q types.Query, cls perception.Classification, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Query          types.Query               `json:"query"`
			Classification perception.Classification `json:"classification"`
		}{q, cls})
	}

	exts := "any"
	if ft := q.FileTypes(); len(ft) > 0 {
		exts = strings.Join(ft, ", ")
	}
	rows := [][2]string{
		{"action", string(q.Action())},
		{"confidence", fmt.Sprintf("%.2f (%s)", q.Confidence(), cls.Source)},
		{"types", exts},
		{"size", formatSize(q.SizeRange())},
		{"modified", string(q.ModifiedWindow())},
		{"pattern", fmt.Sprintf("%q", q.TextPattern())},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\n", styles.keyword.Render(fmt.Sprintf("%-10s", r[0])), r[1])
	}
	return nil
}

func formatSize(r types.SizeRange) string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%s to %s", humanize.IBytes(*r.Min), humanize.IBytes(*r.Max))
	case r.Min != nil:
		return ">= " + humanize.IBytes(*r.Min)
	case r.Max != nil:
		return "<= " + humanize.IBytes(*r.Max)
	default:
		return "any"
	}
}
