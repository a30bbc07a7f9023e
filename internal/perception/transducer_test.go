package perception

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nlfind/internal/metrics"
	"nlfind/internal/types"
)

// fakeClient replays canned responses, one per call. Once the script runs
// out the last entry repeats.
type fakeClient struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     int
	prompts   []string
}

type fakeResponse struct {
	text  string
	err   error
	block bool // wait for ctx to end
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, _, userPrompt string) (string, error) {
	f.mu.Lock()
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	f.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
}

func TestTransducer_NoClientUsesLocalRules(t *testing.T) {
	tr := NewTransducer(nil)
	assert.False(t, tr.HasClassifier())

	p := tr.Perceive(context.Background(), "find pdf files modified today", nil)
	assert.Equal(t, types.ActionSearch, p.Classification.Action)
	assert.Equal(t, 0.9, p.Classification.Confidence)
	assert.Equal(t, SourceLocal, p.Classification.Source)
	assert.Equal(t, []string{"pdf"}, p.Filters.FileTypes)
	assert.Equal(t, types.WindowToday, p.Filters.ModifiedWindow)
}

func TestTransducer_UsesModelAnswer(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{
		text: `Sure! {"action":"delete","confidence":0.95,"file_types":[".TMP","bak"],` +
			`"size":{"min":"1 MB"},"modified_window":"last month","pattern":" Cache "} trailing`,
	}}}
	rec := metrics.New()
	tr := NewTransducer(client,
		WithRetryPolicy(fastRetry(3)),
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(rec))

	p := tr.Perceive(context.Background(), "get rid of junk", nil)

	assert.Equal(t, types.ActionDelete, p.Classification.Action)
	assert.Equal(t, 0.95, p.Classification.Confidence)
	assert.Equal(t, SourceLLM, p.Classification.Source)
	assert.Equal(t, "cache", p.Classification.Pattern)
	assert.Equal(t, []string{"bak", "tmp"}, p.Filters.FileTypes)
	require.NotNil(t, p.Filters.SizeRange.Min)
	assert.Equal(t, uint64(1<<20), *p.Filters.SizeRange.Min)
	assert.Equal(t, types.WindowLastMonth, p.Filters.ModifiedWindow)
	assert.Equal(t, 1, client.Calls())
	assert.Equal(t, []string{"get rid of junk"}, client.prompts)

	series, err := testutil.GatherAndCount(rec.Registry(), "nlfind_classifier_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestTransducer_ModelOmissionsKeepLocalFilters(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{text: `{"action":"search","confidence":2}`}}}
	tr := NewTransducer(client, WithRetryPolicy(fastRetry(1)))

	p := tr.Perceive(context.Background(), "pdf files larger than 100MB", nil)
	assert.Equal(t, SourceLLM, p.Classification.Source)
	assert.Equal(t, 1.0, p.Classification.Confidence)
	assert.Equal(t, []string{"pdf"}, p.Filters.FileTypes)
	require.NotNil(t, p.Filters.SizeRange.Min)
	assert.Equal(t, uint64(104857600), *p.Filters.SizeRange.Min)
}

func TestTransducer_OmittedConfidenceKeepsLocal(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{text: `{"action":"search","file_types":["pdf"]}`}}}
	tr := NewTransducer(client, WithRetryPolicy(fastRetry(1)))

	p := tr.Perceive(context.Background(), "find pdf files", nil)
	assert.Equal(t, SourceLLM, p.Classification.Source)
	assert.Equal(t, 0.9, p.Classification.Confidence)
	assert.Equal(t, []string{"pdf"}, p.Filters.FileTypes)

	client = &fakeClient{responses: []fakeResponse{{text: `{"action":"search","confidence":-3}`}}}
	tr = NewTransducer(client, WithRetryPolicy(fastRetry(1)))
	p = tr.Perceive(context.Background(), "find pdf files", nil)
	assert.Equal(t, 0.9, p.Classification.Confidence)
}

func TestTransducer_FallbackOnError(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{err: errors.New("503")}}}
	rec := metrics.New()
	tr := NewTransducer(client, WithRetryPolicy(fastRetry(3)), WithMetrics(rec))

	p := tr.Perceive(context.Background(), "organize my downloads", nil)
	assert.Equal(t, types.ActionOrganize, p.Classification.Action)
	assert.Equal(t, SourceLocal, p.Classification.Source)
	assert.Equal(t, 3, client.Calls())

	series, err := testutil.GatherAndCount(rec.Registry(), "nlfind_classifier_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestTransducer_RetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{err: errors.New("rate limited")},
		{text: "not json at all"},
		{text: `{"action":"list","confidence":0.6}`},
	}}
	tr := NewTransducer(client, WithRetryPolicy(fastRetry(3)))

	p := tr.Perceive(context.Background(), "what is in here", nil)
	assert.Equal(t, types.ActionList, p.Classification.Action)
	assert.Equal(t, SourceLLM, p.Classification.Source)
	assert.Equal(t, 3, client.Calls())
}

func TestTransducer_FallbackOnMalformed(t *testing.T) {
	tests := []string{
		"no braces",
		`{"action":`,
		`{"action":"launch","confidence":0.9}`,
		`{"action":""}`,
	}
	for _, resp := range tests {
		t.Run(resp, func(t *testing.T) {
			client := &fakeClient{responses: []fakeResponse{{text: resp}}}
			tr := NewTransducer(client, WithRetryPolicy(NoRetry()))

			p := tr.Perceive(context.Background(), "delete old logs", nil)
			assert.Equal(t, SourceLocal, p.Classification.Source)
			assert.Equal(t, types.ActionSearch, p.Classification.Action) // "logs" is a type keyword
		})
	}
}

func TestTransducer_PerAttemptTimeout(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{block: true}}}
	tr := NewTransducer(client, WithRetryPolicy(fastRetry(2)), WithTimeout(20*time.Millisecond))

	start := time.Now()
	p := tr.Perceive(context.Background(), "remove duplicates", nil)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, types.ActionDelete, p.Classification.Action)
	assert.Equal(t, SourceLocal, p.Classification.Source)
	assert.Equal(t, 2, client.Calls())
}

func TestTransducer_EmptyTextSkipsModel(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{text: `{"action":"help"}`}}}
	tr := NewTransducer(client)

	p := tr.Perceive(context.Background(), "   ", []string{"pdf"})
	assert.Equal(t, 0, client.Calls())
	assert.Equal(t, 4, p.Classification.Rule)
}

func TestParseClassifierJSON(t *testing.T) {
	env, err := parseClassifierJSON("```json\n{\"action\":\"/Search\",\"confidence\":0.4}\n```")
	require.NoError(t, err)
	assert.Equal(t, types.ActionSearch, env.action)

	_, err = parseClassifierJSON("")
	assert.ErrorIs(t, err, errMalformedResponse)
}
