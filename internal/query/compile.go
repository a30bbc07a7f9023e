// Package query compiles a classification and extracted filters into the
// immutable types.Query the walker consumes.
package query

import (
	"strings"

	"nlfind/internal/perception"
	"nlfind/internal/types"
)

// Compile merges a classification, the filters extracted from rawText and any
// explicit overrides into a Query. Precedence per field is overrides, then
// the classification's own pattern, then the extracted filters. Compile never
// fails; a fragment that did not parse is simply absent.
func Compile(c perception.Classification, f perception.Filters, rawText string, o *Overrides) types.Query {
	fields := types.QueryFields{
		RawText:        rawText,
		Action:         c.Action,
		FileTypes:      f.FileTypes,
		SizeRange:      f.SizeRange,
		ModifiedWindow: f.ModifiedWindow,
		TextPattern:    strings.ToLower(strings.TrimSpace(rawText)),
		Confidence:     c.Confidence,
	}
	if c.Pattern != "" {
		fields.TextPattern = strings.ToLower(strings.TrimSpace(c.Pattern))
	}

	if o != nil {
		o.apply(&fields)
	}
	return types.NewQuery(fields)
}
