// Package core runs the search pipeline for one request:
// perceive, compile, walk, rank, then hand a plan to the dispatcher.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nlfind/internal/config"
	"nlfind/internal/dispatch"
	"nlfind/internal/metrics"
	"nlfind/internal/perception"
	"nlfind/internal/query"
	"nlfind/internal/types"
	"nlfind/internal/world"
)

// Result is the answer to one request.
type Result struct {
	RequestID string                    `json:"request_id"`
	Root      string                    `json:"root"`
	Query     types.Query               `json:"query"`
	Entries   []types.FileEntry         `json:"entries"`
	Truncated bool                      `json:"truncated"`
	Stats     world.Stats               `json:"stats"`
	Source    perception.Source         `json:"source"`
	Plan      dispatch.Plan             `json:"plan"`
	Outcome   dispatch.Outcome          `json:"outcome"`
	Elapsed   time.Duration             `json:"elapsed_ns"`
	Perceived perception.Classification `json:"classification"`
}

// Engine wires the pipeline. It holds no per-request state, so one Engine
// can serve concurrent requests.
type Engine struct {
	transducer  *perception.Transducer
	walker      *world.Walker
	dispatcher  dispatch.Dispatcher
	defaultRoot string
	logger      *zap.Logger
	queryLog    *zap.Logger
	metrics     *metrics.Recorder
	newID       func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDispatcher replaces the dry-run dispatcher.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(e *Engine) {
		if d != nil {
			e.dispatcher = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithQueryLogger sets the logger for compiled queries. Defaults to the
// engine logger.
func WithQueryLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.queryLog = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator overrides request ID generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an Engine. defaultRoot is used when a request names no
// root; it is normally the walker's anchor root.
func NewEngine(t *perception.Transducer, w *world.Walker, defaultRoot string, opts ...Option) *Engine {
	e := &Engine{
		transducer:  t,
		walker:      w,
		defaultRoot: defaultRoot,
		logger:      zap.NewNop(),
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queryLog == nil {
		e.queryLog = e.logger
	}
	if e.transducer == nil {
		e.transducer = perception.NewTransducer(nil, perception.WithLogger(e.logger))
	}
	if e.walker == nil {
		e.walker = world.NewWalker(world.OptionsFromConfig(config.DefaultSearchConfig(), defaultRoot), e.logger, e.metrics)
	}
	if e.dispatcher == nil {
		e.dispatcher = dispatch.NewLogDispatcher(e.logger, e.metrics)
	}
	return e
}

// Compile runs perception and compilation only.
func (e *Engine) Compile(ctx context.Context, req query.Request) (types.Query, perception.Classification) {
	p := e.transducer.Perceive(ctx, req.Text, req.HintedTypes())
	return query.Compile(p.Classification, p.Filters, req.Text, req.Filters), p.Classification
}

// Search runs the full pipeline. Errors are either *types.Error (bad or
// unreadable root, empty request) or the ctx error.
func (e *Engine) Search(ctx context.Context, req query.Request) (*Result, error) {
	start := time.Now()
	id := e.newID()
	log := e.logger.With(zap.String("request_id", id))

	if err := req.Validate(); err != nil {
		e.metrics.RecordSearch("invalid", time.Since(start), 0, false)
		return nil, err
	}

	root, err := e.ResolveRoot(req.Root)
	if err != nil {
		e.metrics.RecordSearch("invalid", time.Since(start), 0, false)
		return nil, err
	}

	q, cls := e.Compile(ctx, req)
	e.queryLog.Debug("query compiled",
		zap.String("request_id", id),
		zap.String("root", root),
		zap.Stringer("query", q),
		zap.String("source", string(cls.Source)))

	entries, stats, err := e.walker.Walk(ctx, root, q)
	if err != nil {
		e.metrics.RecordSearch("error", time.Since(start), 0, false)
		log.Debug("walk failed", zap.Error(err))
		return nil, err
	}

	entries = world.Rank(entries, req.Text)

	plan := dispatch.NewPlan(id, q, entries)
	outcome, err := e.dispatcher.Dispatch(ctx, plan)
	if err != nil {
		e.metrics.RecordSearch("error", time.Since(start), len(entries), stats.Truncated)
		return nil, fmt.Errorf("dispatch plan %s: %w", id, err)
	}

	elapsed := time.Since(start)
	e.metrics.RecordSearch("ok", elapsed, len(entries), stats.Truncated)
	log.Info("search finished",
		zap.Int("results", len(entries)),
		zap.Bool("truncated", stats.Truncated),
		zap.Duration("elapsed", elapsed))

	return &Result{
		RequestID: id,
		Root:      root,
		Query:     q,
		Entries:   entries,
		Truncated: stats.Truncated,
		Stats:     stats,
		Source:    cls.Source,
		Plan:      plan,
		Outcome:   outcome,
		Elapsed:   elapsed,
		Perceived: cls,
	}, nil
}

// ResolveRoot picks the request root or the default and makes it absolute.
func (e *Engine) ResolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = e.defaultRoot
	}
	if root == "" {
		return "", types.NewError(types.KindInvalidPath, "", "no search root given and no default configured", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", types.NewError(types.KindInvalidPath, root, "cannot resolve search root", err)
	}
	return abs, nil
}
