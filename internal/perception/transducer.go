package perception

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nlfind/internal/metrics"
	"nlfind/internal/types"
)

// Perception is everything read out of one raw request.
type Perception struct {
	Classification Classification `json:"classification"`
	Filters        Filters        `json:"filters"`
}

// Transducer turns raw text into a Perception. It consults an optional
// external classifier and falls back to the local rules on any failure.
// A Transducer holds no per-request state and is safe for concurrent use.
type Transducer struct {
	client  LLMClient
	retry   RetryPolicy
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// TransducerOption configures a Transducer.
type TransducerOption func(*Transducer)

// WithRetryPolicy sets the retry policy around the external classifier.
func WithRetryPolicy(p RetryPolicy) TransducerOption {
	return func(t *Transducer) { t.retry = p }
}

// WithTimeout bounds each external classifier attempt.
func WithTimeout(d time.Duration) TransducerOption {
	return func(t *Transducer) { t.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) TransducerOption {
	return func(t *Transducer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) TransducerOption {
	return func(t *Transducer) { t.metrics = m }
}

// NewTransducer creates a Transducer. client may be nil, in which case only
// the local rules run.
func NewTransducer(client LLMClient, opts ...TransducerOption) *Transducer {
	t := &Transducer{
		client:  client,
		retry:   DefaultRetryPolicy(),
		timeout: 8 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasClassifier reports whether an external classifier is configured.
func (t *Transducer) HasClassifier() bool {
	return t.client != nil
}

// Perceive classifies text and extracts its filters. hinted carries file
// types supplied outside the text; they only feed the implicit-search rule.
// Perceive never fails.
func (t *Transducer) Perceive(ctx context.Context, text string, hinted []string) Perception {
	local := Perception{
		Classification: ClassifyWithHints(text, hinted),
		Filters:        Extract(text),
	}

	if t.client == nil || strings.TrimSpace(text) == "" {
		t.metrics.RecordClassification(string(local.Classification.Source), string(local.Classification.Action))
		return local
	}

	env, err := t.classifyExternal(ctx, text)
	if err != nil {
		reason := fallbackReason(err)
		t.logger.Debug("classifier unavailable, using local rules",
			zap.String("reason", reason),
			zap.Error(types.NewError(types.KindClassifierUnavailable, "", "external classifier failed", err)))
		t.metrics.RecordClassifierFallback(reason)
		t.metrics.RecordClassification(string(local.Classification.Source), string(local.Classification.Action))
		return local
	}

	p := env.merge(local)
	t.logger.Debug("classified by external model",
		zap.String("action", string(p.Classification.Action)),
		zap.Float64("confidence", p.Classification.Confidence))
	t.metrics.RecordClassification(string(p.Classification.Source), string(p.Classification.Action))
	return p
}

func (t *Transducer) classifyExternal(ctx context.Context, text string) (classifierEnvelope, error) {
	var env classifierEnvelope
	err := t.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		attemptCtx := ctx
		if t.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}

		resp, err := t.client.CompleteWithSystem(attemptCtx, classifierSystemPrompt, text)
		if err != nil {
			t.metrics.RecordClassifierAttempt("error")
			t.logger.Debug("classifier attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}

		parsed, err := parseClassifierJSON(resp)
		if err != nil {
			t.metrics.RecordClassifierAttempt("malformed")
			t.logger.Debug("classifier returned malformed output",
				zap.Int("attempt", attempt),
				zap.String("response", truncate(resp, 200)))
			return err
		}

		t.metrics.RecordClassifierAttempt("ok")
		env = parsed
		return nil
	})
	return env, err
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, errMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}

// =============================================================================
// CLASSIFIER ENVELOPE
// =============================================================================

const classifierSystemPrompt = `You classify file search requests.
Reply with a single JSON object and nothing else:
{"action": "search|list|organize|delete|help",
 "confidence": 0.0-1.0,
 "file_types": ["pdf", ...],
 "size": {"min": "10MB", "max": "1GB"},
 "modified_window": "today|this_week|last_week|this_month|last_month|recent|none",
 "pattern": "name fragment to match, or empty"}
Use lowercase extensions without dots. Omit fields you cannot infer.`

var errMalformedResponse = errors.New("malformed classifier response")

type classifierEnvelope struct {
	Action     string   `json:"action"`
	Confidence float64  `json:"confidence"`
	FileTypes  []string `json:"file_types"`
	Size       struct {
		Min string `json:"min"`
		Max string `json:"max"`
	} `json:"size"`
	ModifiedWindow string `json:"modified_window"`
	Pattern        string `json:"pattern"`

	action types.Action
}

// parseClassifierJSON decodes the first JSON object in resp, ignoring any
// prose around it.
func parseClassifierJSON(resp string) (classifierEnvelope, error) {
	start := strings.Index(resp, "{")
	if start == -1 {
		return classifierEnvelope{}, fmt.Errorf("%w: no JSON object found", errMalformedResponse)
	}

	decoder := json.NewDecoder(strings.NewReader(resp[start:]))
	var env classifierEnvelope
	if err := decoder.Decode(&env); err != nil {
		return classifierEnvelope{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}

	action, ok := types.ParseAction(env.Action)
	if !ok {
		return classifierEnvelope{}, fmt.Errorf("%w: unknown action %q", errMalformedResponse, env.Action)
	}
	env.action = action
	return env, nil
}

// merge lays the model's answer over the local perception. Fields the model
// left empty or got wrong keep their local value.
func (e classifierEnvelope) merge(local Perception) Perception {
	out := local
	out.Classification = Classification{
		Action:     e.action,
		Confidence: local.Classification.Confidence,
		Pattern:    strings.ToLower(strings.TrimSpace(e.Pattern)),
		Source:     SourceLLM,
	}
	// an omitted confidence decodes as zero
	if e.Confidence > 0 {
		out.Classification.Confidence = clampConfidence(e.Confidence)
	}

	if exts := types.CanonicalExtensions(e.FileTypes); len(exts) > 0 {
		out.Filters.FileTypes = exts
	}

	var lo, hi *uint64
	if v, ok := ParseSize(e.Size.Min); ok {
		lo = &v
	}
	if v, ok := ParseSize(e.Size.Max); ok {
		hi = &v
	}
	if lo != nil || hi != nil {
		out.Filters.SizeRange = types.NewSizeRange(lo, hi)
	}

	if w, ok := types.ParseModifiedWindow(e.ModifiedWindow); ok && w != types.WindowNone {
		out.Filters.ModifiedWindow = w
	}
	return out
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
