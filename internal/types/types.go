// Package types provides the shared data model used across nlfind packages.
// This package exists to break import cycles between perception, query, world and core.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// ACTIONS
// =============================================================================

// Action is the operation a request asks for.
type Action string

const (
	ActionSearch   Action = "search"
	ActionList     Action = "list"
	ActionOrganize Action = "organize"
	ActionDelete   Action = "delete"
	ActionHelp     Action = "help"
)

// ParseAction maps a loose action name onto an Action.
// Unknown names report false.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "/")))) {
	case ActionSearch:
		return ActionSearch, true
	case ActionList:
		return ActionList, true
	case ActionOrganize:
		return ActionOrganize, true
	case ActionDelete:
		return ActionDelete, true
	case ActionHelp:
		return ActionHelp, true
	}
	return "", false
}

// Mutating reports whether executing the action would change the filesystem.
func (a Action) Mutating() bool {
	return a == ActionOrganize || a == ActionDelete
}

// =============================================================================
// MODIFICATION WINDOWS
// =============================================================================

// ModifiedWindow is a named recency window.
type ModifiedWindow string

const (
	WindowNone      ModifiedWindow = "none"
	WindowToday     ModifiedWindow = "today"
	WindowThisWeek  ModifiedWindow = "this_week"
	WindowLastWeek  ModifiedWindow = "last_week"
	WindowThisMonth ModifiedWindow = "this_month"
	WindowLastMonth ModifiedWindow = "last_month"
	WindowRecent    ModifiedWindow = "recent"
)

// ParseModifiedWindow maps a window name (either "this_week" or "this week") onto a window.
func ParseModifiedWindow(s string) (ModifiedWindow, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch ModifiedWindow(norm) {
	case WindowNone, "":
		return WindowNone, true
	case WindowToday, WindowThisWeek, WindowLastWeek, WindowThisMonth, WindowLastMonth, WindowRecent:
		return ModifiedWindow(norm), true
	}
	return WindowNone, false
}

// Matches reports whether a timestamp falls inside the window relative to now.
// Age is measured in fractional days.
func (w ModifiedWindow) Matches(modified, now time.Time) bool {
	age := now.Sub(modified).Hours() / 24
	switch w {
	case WindowToday:
		return age < 1
	case WindowThisWeek, WindowRecent:
		return age < 7
	case WindowLastWeek:
		return age >= 7 && age < 14
	case WindowThisMonth:
		return age < 30
	case WindowLastMonth:
		return age >= 30 && age < 60
	default:
		return true
	}
}

// =============================================================================
// SIZE RANGE
// =============================================================================

// SizeRange bounds a file size in bytes. Nil bounds are open.
type SizeRange struct {
	Min *uint64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *uint64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// NewSizeRange builds a range, swapping the bounds when they are reversed.
func NewSizeRange(min, max *uint64) SizeRange {
	if min != nil && max != nil && *min > *max {
		min, max = max, min
	}
	return SizeRange{Min: copyBound(min), Max: copyBound(max)}
}

func copyBound(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IsZero reports whether neither bound is set.
func (r SizeRange) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether size lies inside the range (bounds inclusive).
func (r SizeRange) Contains(size uint64) bool {
	if r.Min != nil && size < *r.Min {
		return false
	}
	if r.Max != nil && size > *r.Max {
		return false
	}
	return true
}

func (r SizeRange) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("[%d, %d]", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf(">= %d", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("<= %d", *r.Max)
	}
	return "any"
}

// =============================================================================
// QUERY
// =============================================================================

// Query is the compiled, immutable form of a user request.
// Build one through query.Compile; the zero value matches everything.
type Query struct {
	rawText        string
	action         Action
	fileTypes      []string
	sizeRange      SizeRange
	modifiedWindow ModifiedWindow
	textPattern    string
	confidence     float64
}

// QueryFields carries the values for NewQuery.
type QueryFields struct {
	RawText        string
	Action         Action
	FileTypes      []string
	SizeRange      SizeRange
	ModifiedWindow ModifiedWindow
	TextPattern    string
	Confidence     float64
}

// NewQuery freezes fields into a Query. File types are canonicalized,
// confidence is clamped to [0,1] and the size range is normalized.
func NewQuery(f QueryFields) Query {
	window := f.ModifiedWindow
	if window == "" {
		window = WindowNone
	}
	action := f.Action
	if action == "" {
		action = ActionSearch
	}
	conf := f.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return Query{
		rawText:        f.RawText,
		action:         action,
		fileTypes:      CanonicalExtensions(f.FileTypes),
		sizeRange:      NewSizeRange(f.SizeRange.Min, f.SizeRange.Max),
		modifiedWindow: window,
		textPattern:    f.TextPattern,
		confidence:     conf,
	}
}

func (q Query) RawText() string                { return q.rawText }
func (q Query) Action() Action                 { return q.action }
func (q Query) SizeRange() SizeRange           { return NewSizeRange(q.sizeRange.Min, q.sizeRange.Max) }
func (q Query) ModifiedWindow() ModifiedWindow { return q.modifiedWindow }
func (q Query) TextPattern() string            { return q.textPattern }
func (q Query) Confidence() float64            { return q.confidence }

// FileTypes returns a copy of the extension set, sorted.
func (q Query) FileTypes() []string {
	if len(q.fileTypes) == 0 {
		return nil
	}
	out := make([]string, len(q.fileTypes))
	copy(out, q.fileTypes)
	return out
}

// HasFileType reports whether ext is in the extension set.
func (q Query) HasFileType(ext string) bool {
	i := sort.SearchStrings(q.fileTypes, ext)
	return i < len(q.fileTypes) && q.fileTypes[i] == ext
}

// HasTypeFilter reports whether the query restricts file types.
func (q Query) HasTypeFilter() bool {
	return len(q.fileTypes) > 0
}

// Fields returns an editable copy of the query's values.
func (q Query) Fields() QueryFields {
	return QueryFields{
		RawText:        q.rawText,
		Action:         q.action,
		FileTypes:      q.FileTypes(),
		SizeRange:      q.SizeRange(),
		ModifiedWindow: q.modifiedWindow,
		TextPattern:    q.textPattern,
		Confidence:     q.confidence,
	}
}

// querySnapshot is the serialized shape of a Query.
type querySnapshot struct {
	RawText        string         `json:"raw_text"`
	Action         Action         `json:"action"`
	FileTypes      []string       `json:"file_types"`
	SizeRange      SizeRange      `json:"size_range"`
	ModifiedWindow ModifiedWindow `json:"modified_window"`
	TextPattern    string         `json:"text_pattern"`
	Confidence     float64        `json:"confidence"`
}

// MarshalJSON encodes the query's values.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(querySnapshot(q.Fields()))
}

func (q Query) String() string {
	return fmt.Sprintf("%s(types=%v size=%s window=%s pattern=%q conf=%.2f)",
		q.action, q.fileTypes, q.sizeRange, q.modifiedWindow, q.textPattern, q.confidence)
}

// CanonicalExtensions lowercases, strips leading dots, drops empties,
// dedupes and sorts a list of extensions. An empty result is nil.
func CanonicalExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimLeft(strings.ToLower(strings.TrimSpace(e)), ".")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// FILE ENTRY
// =============================================================================

// FileEntry describes one filesystem entry found by a walk.
type FileEntry struct {
	Name        string    `json:"name"`
	FullPath    string    `json:"full_path"`
	IsDirectory bool      `json:"is_directory"`
	SizeBytes   uint64    `json:"size_bytes"`
	ModifiedAt  time.Time `json:"modified_at"`
	Extension   string    `json:"extension"`
}

// ExtensionOf returns the lowercase extension of name without its dot.
func ExtensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
