package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlfind/internal/perception"
	"nlfind/internal/types"
)

func ptr[T any](v T) *T { return &v }

func compileText(text string, o *Overrides) types.Query {
	var hinted []string
	if o != nil {
		hinted = o.FileTypes
	}
	return Compile(perception.ClassifyWithHints(text, hinted), perception.Extract(text), text, o)
}

func TestCompile_FromText(t *testing.T) {
	q := compileText("  Find PDF files larger than 100MB modified today ", nil)

	want := types.QueryFields{
		RawText:        "  Find PDF files larger than 100MB modified today ",
		Action:         types.ActionSearch,
		FileTypes:      []string{"pdf"},
		SizeRange:      types.SizeRange{Min: ptr(uint64(104857600))},
		ModifiedWindow: types.WindowToday,
		TextPattern:    "find pdf files larger than 100mb modified today",
		Confidence:     0.9,
	}
	if diff := cmp.Diff(want, q.Fields()); diff != "" {
		t.Errorf("Compile mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ClassificationPattern(t *testing.T) {
	c := perception.Classification{Action: types.ActionSearch, Confidence: 0.8, Pattern: " Invoice ", Source: perception.SourceLLM}
	q := Compile(c, perception.Filters{}, "any invoices from acme?", nil)
	assert.Equal(t, "invoice", q.TextPattern())
}

func TestCompile_OverridesWin(t *testing.T) {
	o := &Overrides{
		FileTypes:      []string{".PNG", "jpg", "png"},
		MinSize:        "5MB",
		MaxSize:        "1024",
		ModifiedWindow: "this week",
		Pattern:        ptr(""),
		Action:         "list",
	}
	q := compileText("pdf files larger than 100MB modified today", o)

	assert.Equal(t, []string{"jpg", "png"}, q.FileTypes())
	// 5MB min and 1024 max are inverted and get swapped
	sr := q.SizeRange()
	require.NotNil(t, sr.Min)
	require.NotNil(t, sr.Max)
	assert.Equal(t, uint64(1024), *sr.Min)
	assert.Equal(t, uint64(5<<20), *sr.Max)
	assert.Equal(t, types.WindowThisWeek, q.ModifiedWindow())
	assert.Equal(t, "", q.TextPattern())
	assert.Equal(t, types.ActionList, q.Action())
}

func TestCompile_BadOverridesIgnored(t *testing.T) {
	o := &Overrides{MinSize: "huge", ModifiedWindow: "someday", Action: "explode"}
	q := compileText("find pdf files over 1KB today", o)

	require.NotNil(t, q.SizeRange().Min)
	assert.Equal(t, uint64(1024), *q.SizeRange().Min)
	assert.Equal(t, types.WindowToday, q.ModifiedWindow())
	assert.Equal(t, types.ActionSearch, q.Action())
}

func TestCompile_HintedTypesTriggerImplicitSearch(t *testing.T) {
	o := &Overrides{FileTypes: []string{"csv"}}
	q := compileText("quarterly numbers", o)
	assert.Equal(t, types.ActionSearch, q.Action())
	assert.Equal(t, 0.7, q.Confidence())
	assert.Equal(t, []string{"csv"}, q.FileTypes())
}

func TestCompile_Deterministic(t *testing.T) {
	a := compileText("show me photos from last month", nil)
	b := compileText("show me photos from last month", nil)
	assert.Equal(t, a.String(), b.String())
	if diff := cmp.Diff(a.Fields(), b.Fields()); diff != "" {
		t.Errorf("two compiles differ:\n%s", diff)
	}
}

func TestRequest_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Request
	}{
		{"bare string", `"find pdf files"`, Request{Text: "find pdf files"}},
		{"object", `{"text":"report","root":"/tmp","filters":{"file_types":["pdf"],"pattern":"q3"}}`,
			Request{Text: "report", Root: "/tmp", Filters: &Overrides{FileTypes: []string{"pdf"}, Pattern: ptr("q3")}}},
		{"object without filters", ` {"text":"x"}`, Request{Text: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Request
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var r Request
	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"unterminated`), &r))
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, NewRequest("report").Validate())
	assert.NoError(t, Request{Filters: &Overrides{FileTypes: []string{"pdf"}}}.Validate())

	err := Request{Text: "   "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidPath))

	err = Request{Filters: &Overrides{FileTypes: []string{"."}}}.Validate()
	assert.Error(t, err)
}

func TestRequest_HintedTypes(t *testing.T) {
	assert.Nil(t, NewRequest("x").HintedTypes())
	r := Request{Filters: &Overrides{FileTypes: []string{"PDF", ".pdf", "Txt"}}}
	assert.Equal(t, []string{"pdf", "txt"}, r.HintedTypes())
}
