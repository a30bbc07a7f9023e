package perception

import (
	"nlfind/internal/types"
)

// Source records which classifier produced a Classification.
type Source string

const (
	SourceLocal Source = "local"
	SourceLLM   Source = "llm"
)

// Confidence thresholds for the local rules.
const (
	ConfidenceVerbAndType = 0.9
	ConfidenceVerbOnly    = 0.8
	ConfidenceTypeOnly    = 0.7
	ConfidenceOrganize    = 0.7
	ConfidenceDelete      = 0.6
	ConfidenceImplicit    = 0.7
	ConfidenceFallback    = 0.5
)

// Classification is the classifier's verdict on a request.
type Classification struct {
	Action     types.Action `json:"action"`
	Confidence float64      `json:"confidence"`
	// Pattern overrides the text pattern the compiler derives from the raw
	// text. Empty means "derive from raw text".
	Pattern string `json:"pattern,omitempty"`
	Rule    int    `json:"rule,omitempty"`
	Source  Source `json:"source"`
}

// Classify applies the local keyword rules to text. It is total: every input
// maps to exactly one action.
func Classify(text string) Classification {
	return ClassifyWithHints(text, nil)
}

// ClassifyWithHints is Classify with file types supplied from outside the
// text (explicit filters). Hinted types only take part in rule 4.
//
// Rules, first match wins:
//  1. search verb, or a type keyword in the text -> search
//  2. organize|sort -> organize
//  3. delete|remove -> delete
//  4. any file types known (hinted) -> implicit search
//  5. otherwise -> search on the whole text
func ClassifyWithHints(text string, hinted []string) Classification {
	tokens := tokenize(text)
	hasVerb := containsAny(tokens, searchVerbs)
	hasType := len(ParseFileTypes(text)) > 0

	switch {
	case hasVerb && hasType:
		return Classification{Action: types.ActionSearch, Confidence: ConfidenceVerbAndType, Rule: 1, Source: SourceLocal}
	case hasVerb:
		return Classification{Action: types.ActionSearch, Confidence: ConfidenceVerbOnly, Rule: 1, Source: SourceLocal}
	case hasType:
		return Classification{Action: types.ActionSearch, Confidence: ConfidenceTypeOnly, Rule: 1, Source: SourceLocal}
	case containsAny(tokens, organizeVerbs):
		return Classification{Action: types.ActionOrganize, Confidence: ConfidenceOrganize, Rule: 2, Source: SourceLocal}
	case containsAny(tokens, deleteVerbs):
		return Classification{Action: types.ActionDelete, Confidence: ConfidenceDelete, Rule: 3, Source: SourceLocal}
	case len(types.CanonicalExtensions(hinted)) > 0:
		return Classification{Action: types.ActionSearch, Confidence: ConfidenceImplicit, Rule: 4, Source: SourceLocal}
	}
	return Classification{Action: types.ActionSearch, Confidence: ConfidenceFallback, Rule: 5, Source: SourceLocal}
}
