package perception

import (
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"nlfind/internal/types"
)

// =============================================================================
// FILTER EXTRACTOR
// =============================================================================
// Every parser here is lenient: a fragment that does not match simply yields
// "no constraint". Nothing in this file returns an error.

// Filters is the set of constraints extracted from raw text.
type Filters struct {
	FileTypes      []string             `json:"file_types,omitempty"`
	SizeRange      types.SizeRange      `json:"size_range"`
	ModifiedWindow types.ModifiedWindow `json:"modified_window"`
}

const sizeExpr = `(\d+(?:\.\d+)?)\s*(kb|mb|gb|b)\b`

var (
	sizePattern    = regexp.MustCompile(`(?i)` + sizeExpr)
	betweenPattern = regexp.MustCompile(`(?i)between\s+` + sizeExpr + `\s+and\s+` + sizeExpr)
	windowPattern  = regexp.MustCompile(`(?i)\b(today|this\s+week|last\s+week|this\s+month|last\s+month|recent(?:ly)?)\b`)
)

var unitMultipliers = map[string]uint64{
	"b":  1,
	"kb": 1 << 10,
	"mb": 1 << 20,
	"gb": 1 << 30,
}

// Comparator words, checked against the text just before a size.
var (
	minComparators = []string{"larger", "bigger", "greater", "more than", "over", "above", "at least", "exceeding", ">"}
	maxComparators = []string{"smaller", "less than", "under", "below", "at most", "up to", "no more than", "<"}
)

// Extract runs every filter parser over text.
func Extract(text string) Filters {
	return Filters{
		FileTypes:      ParseFileTypes(text),
		SizeRange:      ParseSizeRange(text),
		ModifiedWindow: ParseModifiedWindow(text),
	}
}

// ParseSize returns the first "<number><unit>" size in text, in bytes.
func ParseSize(text string) (uint64, bool) {
	m := sizePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return toBytes(m[1], m[2])
}

// toBytes converts a decimal magnitude and unit into bytes.
// Integer magnitudes convert exactly; fractional ones truncate.
func toBytes(magnitude, unit string) (uint64, bool) {
	mult, ok := unitMultipliers[strings.ToLower(unit)]
	if !ok {
		return 0, false
	}
	if !strings.Contains(magnitude, ".") {
		v, err := strconv.ParseUint(magnitude, 10, 64)
		if err != nil {
			return 0, false
		}
		hi, lo := bits.Mul64(v, mult)
		if hi != 0 {
			return 0, false
		}
		return lo, true
	}
	f, err := strconv.ParseFloat(magnitude, 64)
	if err != nil {
		return 0, false
	}
	bytes := f * float64(mult)
	if bytes >= math.MaxUint64 {
		return 0, false
	}
	return uint64(bytes), true
}

// ParseSizeRange reads size bounds from text. "between A and B" sets both
// bounds; otherwise the comparator nearest before each size decides whether it
// is a minimum or a maximum. A size with no comparator is a minimum.
func ParseSizeRange(text string) types.SizeRange {
	if m := betweenPattern.FindStringSubmatch(text); m != nil {
		lo, okLo := toBytes(m[1], m[2])
		hi, okHi := toBytes(m[3], m[4])
		if okLo && okHi {
			return types.NewSizeRange(&lo, &hi)
		}
	}

	var lowBound, highBound *uint64
	prevEnd := 0
	for _, loc := range sizePattern.FindAllStringSubmatchIndex(text, -1) {
		v, ok := toBytes(text[loc[2]:loc[3]], text[loc[4]:loc[5]])
		if !ok {
			prevEnd = loc[1]
			continue
		}
		before := strings.ToLower(text[prevEnd:loc[0]])
		prevEnd = loc[1]

		value := v
		switch comparatorBefore(before) {
		case boundMax:
			highBound = &value
		case boundMin:
			lowBound = &value
		default:
			if lowBound == nil {
				lowBound = &value
			}
		}
	}
	return types.NewSizeRange(lowBound, highBound)
}

type bound int

const (
	boundNone bound = iota
	boundMin
	boundMax
)

// comparator is one compiled comparator phrase. Word phrases only match on
// word boundaries, so "under" never fires inside "thunderbird".
type comparator struct {
	re    *regexp.Regexp
	bound bound
	width int
}

var comparators = compileComparators()

func compileComparators() []comparator {
	var out []comparator
	add := func(words []string, b bound) {
		for _, w := range words {
			expr := regexp.QuoteMeta(w)
			if w[0] >= 'a' && w[0] <= 'z' {
				expr = `\b` + strings.ReplaceAll(expr, " ", `\s+`) + `\b`
			}
			out = append(out, comparator{re: regexp.MustCompile(expr), bound: b, width: len(w)})
		}
	}
	add(minComparators, boundMin)
	add(maxComparators, boundMax)
	return out
}

// comparatorBefore finds the comparator that ends closest to the end of
// segment. On a tie the longer phrase wins, so "no more than" beats "more than".
func comparatorBefore(segment string) bound {
	best, bestEnd, bestLen := boundNone, -1, 0
	for _, c := range comparators {
		locs := c.re.FindAllStringIndex(segment, -1)
		if len(locs) == 0 {
			continue
		}
		end := locs[len(locs)-1][1]
		if end > bestEnd || (end == bestEnd && c.width > bestLen) {
			best, bestEnd, bestLen = c.bound, end, c.width
		}
	}
	return best
}

// ParseModifiedWindow returns the first recency window named in text.
func ParseModifiedWindow(text string) types.ModifiedWindow {
	m := windowPattern.FindStringSubmatch(text)
	if m == nil {
		return types.WindowNone
	}
	phrase := strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
	if strings.HasPrefix(phrase, "recent") {
		return types.WindowRecent
	}
	w, _ := types.ParseModifiedWindow(phrase)
	return w
}

// ParseFileTypes resolves type keywords to extensions. Specific extension
// keywords win outright; category words are consulted only when no specific
// keyword matched.
func ParseFileTypes(text string) []string {
	tokens := tokenize(text)
	if exts := lookupTypes(tokens, specificTypes); len(exts) > 0 {
		return exts
	}
	return lookupTypes(tokens, categoryTypes)
}
