// Package dispatch hands the outcome of a search to whatever acts on it.
// Only a dry-run dispatcher ships; nothing here touches the filesystem.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nlfind/internal/metrics"
	"nlfind/internal/types"
)

// Plan describes what a request would do with its matches.
type Plan struct {
	ID          string       `json:"id"`
	Action      types.Action `json:"action"`
	Query       types.Query  `json:"query"`
	Targets     []string     `json:"targets,omitempty"`
	Destination string       `json:"destination,omitempty"`
	DryRun      bool         `json:"dry_run"`
}

// Outcome reports what a Dispatcher did with a Plan.
type Outcome struct {
	Executed bool   `json:"executed"`
	Summary  string `json:"summary"`
}

// Dispatcher receives plans produced by the engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Plan) (Outcome, error)
}

// NewPlan builds a plan for a ranked result. Search-like actions carry only
// the query; mutating actions list their targets.
func NewPlan(id string, q types.Query, entries []types.FileEntry) Plan {
	p := Plan{
		ID:     id,
		Action: q.Action(),
		Query:  q,
		DryRun: true,
	}
	if q.Action().Mutating() {
		p.Targets = make([]string, 0, len(entries))
		for _, e := range entries {
			p.Targets = append(p.Targets, e.FullPath)
		}
	}
	return p
}

// LogDispatcher logs plans and never executes them.
type LogDispatcher struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewLogDispatcher creates a dry-run dispatcher.
func NewLogDispatcher(logger *zap.Logger, m *metrics.Recorder) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger, metrics: m}
}

// Dispatch records the plan.
func (d *LogDispatcher) Dispatch(ctx context.Context, p Plan) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	d.metrics.RecordPlan(string(p.Action))

	if !p.Action.Mutating() {
		d.logger.Debug("search plan", zap.String("id", p.ID), zap.Stringer("query", p.Query))
		return Outcome{Summary: fmt.Sprintf("%s: nothing to execute", p.Action)}, nil
	}

	d.logger.Info("dry run: plan not executed",
		zap.String("id", p.ID),
		zap.String("action", string(p.Action)),
		zap.Int("targets", len(p.Targets)),
		zap.String("destination", p.Destination))
	return Outcome{
		Summary: fmt.Sprintf("dry run: would %s %d entries", p.Action, len(p.Targets)),
	}, nil
}
