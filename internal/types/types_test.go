package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func TestModifiedWindowMatches(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d float64) time.Time {
		return now.Add(-time.Duration(d * float64(24*time.Hour)))
	}

	tests := []struct {
		window ModifiedWindow
		age    float64
		want   bool
	}{
		{WindowToday, 0.5, true},
		{WindowToday, 1, false},
		{WindowThisWeek, 6.9, true},
		{WindowThisWeek, 7, false},
		{WindowRecent, 3, true},
		{WindowLastWeek, 6.9, false},
		{WindowLastWeek, 7, true},
		{WindowLastWeek, 13.9, true},
		{WindowLastWeek, 14, false},
		{WindowThisMonth, 29, true},
		{WindowThisMonth, 30, false},
		{WindowLastMonth, 29, false},
		{WindowLastMonth, 30, true},
		{WindowLastMonth, 60, false},
		{WindowNone, 1000, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%.1f", tt.window, tt.age), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Matches(daysAgo(tt.age), now))
		})
	}
}

func TestParseModifiedWindow(t *testing.T) {
	w, ok := ParseModifiedWindow("this week")
	assert.True(t, ok)
	assert.Equal(t, WindowThisWeek, w)

	w, ok = ParseModifiedWindow("LAST_MONTH")
	assert.True(t, ok)
	assert.Equal(t, WindowLastMonth, w)

	_, ok = ParseModifiedWindow("yesteryear")
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("/Organize")
	assert.True(t, ok)
	assert.Equal(t, ActionOrganize, a)
	assert.True(t, a.Mutating())

	_, ok = ParseAction("explode")
	assert.False(t, ok)
	assert.False(t, ActionSearch.Mutating())
}

func TestNewSizeRange_SwapsReversedBounds(t *testing.T) {
	r := NewSizeRange(u64(500), u64(100))
	require.NotNil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.Equal(t, uint64(100), *r.Min)
	assert.Equal(t, uint64(500), *r.Max)
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(500))
	assert.False(t, r.Contains(501))
	assert.False(t, r.Contains(99))
}

func TestSizeRangeOpenBounds(t *testing.T) {
	assert.True(t, SizeRange{}.IsZero())
	assert.True(t, SizeRange{}.Contains(1<<40))
	assert.True(t, SizeRange{Min: u64(10)}.Contains(1<<40))
	assert.False(t, SizeRange{Max: u64(10)}.Contains(11))
}

func TestNewQuery_IsImmutable(t *testing.T) {
	exts := []string{"PDF", ".txt", "pdf", ""}
	min := uint64(10)
	q := NewQuery(QueryFields{
		RawText:    "find pdf",
		FileTypes:  exts,
		SizeRange:  SizeRange{Min: &min},
		Confidence: 1.7,
	})

	exts[0] = "exe"
	min = 99
	got := q.FileTypes()
	got[0] = "mutated"

	assert.Equal(t, []string{"pdf", "txt"}, q.FileTypes())
	assert.Equal(t, uint64(10), *q.SizeRange().Min)
	assert.Equal(t, 1.0, q.Confidence())
	assert.Equal(t, ActionSearch, q.Action())
	assert.Equal(t, WindowNone, q.ModifiedWindow())
	assert.True(t, q.HasFileType("txt"))
	assert.False(t, q.HasFileType("exe"))
}

func TestQueryMarshalJSON(t *testing.T) {
	q := NewQuery(QueryFields{RawText: "x", Action: ActionDelete, FileTypes: []string{"tmp"}, Confidence: 0.6})
	data, err := json.Marshal(q)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "delete", decoded["action"])
	assert.Equal(t, []any{"tmp"}, decoded["file_types"])
	assert.Equal(t, "none", decoded["modified_window"])
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "pdf", ExtensionOf("Report.PDF"))
	assert.Equal(t, "gz", ExtensionOf("archive.tar.gz"))
	assert.Equal(t, "", ExtensionOf(".bashrc"))
	assert.Equal(t, "", ExtensionOf("Makefile"))
	assert.Equal(t, "", ExtensionOf("trailing."))
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("walk: %w", NewError(KindUnreadableRoot, "/srv", "cannot list root", cause))

	assert.True(t, errors.Is(err, ErrUnreadableRoot))
	assert.False(t, errors.Is(err, ErrInvalidPath))
	assert.True(t, errors.Is(err, cause))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Kind.Fatal())
	assert.Contains(t, se.Error(), "/srv")
	assert.False(t, KindPermissionDenied.Fatal())
}
