package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"nlfind/internal/perception"
	"nlfind/internal/types"
)

// Request is one search request at the API boundary. Its JSON form is either
// a bare string or an object with text, filters and root.
type Request struct {
	Text    string     `json:"text"`
	Filters *Overrides `json:"filters,omitempty"`
	Root    string     `json:"root,omitempty"`
}

// Overrides are explicit filters supplied next to the free text. Set fields
// win over anything read out of the text.
type Overrides struct {
	FileTypes      []string `json:"file_types,omitempty" yaml:"file_types,omitempty"`
	MinSize        string   `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize        string   `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	ModifiedWindow string   `json:"modified_window,omitempty" yaml:"modified_window,omitempty"`
	Pattern        *string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Action         string   `json:"action,omitempty" yaml:"action,omitempty"`
}

// NewRequest builds a plain text request.
func NewRequest(text string) Request {
	return Request{Text: text}
}

// UnmarshalJSON accepts either "find pdf files" or {"text": ..., ...}.
func (r *Request) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("invalid request string: %w", err)
		}
		*r = Request{Text: text}
		return nil
	}

	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid request object: %w", err)
	}
	*r = Request(p)
	return nil
}

// HintedTypes returns the explicit file types, canonicalized.
func (r Request) HintedTypes() []string {
	if r.Filters == nil {
		return nil
	}
	return types.CanonicalExtensions(r.Filters.FileTypes)
}

// Validate rejects requests with nothing to search for.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" && r.Filters.IsZero() {
		return types.NewError(types.KindInvalidPath, r.Root, "empty request: no text and no filters", nil)
	}
	return nil
}

// IsZero reports whether no override is set.
func (o *Overrides) IsZero() bool {
	if o == nil {
		return true
	}
	return len(types.CanonicalExtensions(o.FileTypes)) == 0 &&
		o.MinSize == "" && o.MaxSize == "" &&
		o.ModifiedWindow == "" && o.Pattern == nil && o.Action == ""
}

// apply lays the overrides over fields. Unparseable values are ignored.
func (o *Overrides) apply(f *types.QueryFields) {
	if exts := types.CanonicalExtensions(o.FileTypes); len(exts) > 0 {
		f.FileTypes = exts
	}

	lo, hi := f.SizeRange.Min, f.SizeRange.Max
	if v, ok := parseSizeOverride(o.MinSize); ok {
		lo = &v
	}
	if v, ok := parseSizeOverride(o.MaxSize); ok {
		hi = &v
	}
	f.SizeRange = types.NewSizeRange(lo, hi)

	if o.ModifiedWindow != "" {
		if w, ok := types.ParseModifiedWindow(o.ModifiedWindow); ok {
			f.ModifiedWindow = w
		}
	}
	if o.Pattern != nil {
		f.TextPattern = strings.ToLower(strings.TrimSpace(*o.Pattern))
	}
	if a, ok := types.ParseAction(o.Action); ok {
		f.Action = a
	}
}

// parseSizeOverride accepts "10MB" style sizes or a bare byte count.
func parseSizeOverride(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, true
	}
	return perception.ParseSize(s)
}
