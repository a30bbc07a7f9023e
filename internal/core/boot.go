package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nlfind/internal/config"
	"nlfind/internal/dispatch"
	"nlfind/internal/logging"
	"nlfind/internal/metrics"
	"nlfind/internal/perception"
	"nlfind/internal/world"
)

// Boot builds an Engine from configuration. A classifier that cannot be
// constructed is logged and the engine runs on the local rules.
func Boot(ctx context.Context, cfg *config.Config, logs *logging.Factory, m *metrics.Recorder) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	bootLog := logs.Get(logging.CategoryBoot)

	root, err := cfg.Search.ResolveDefaultRoot()
	if err != nil {
		return nil, err
	}

	t, err := perception.NewTransducerFromConfig(ctx, cfg.Classifier,
		perception.WithLogger(logs.Get(logging.CategoryPerception)),
		perception.WithMetrics(m))
	if err != nil {
		bootLog.Warn("external classifier unavailable, using local rules",
			zap.String("provider", cfg.Classifier.Provider),
			zap.Error(err))
	}

	w := world.NewWalker(world.OptionsFromConfig(cfg.Search, root), logs.Get(logging.CategoryWorld), m)

	bootLog.Debug("engine ready",
		zap.String("default_root", root),
		zap.Bool("classifier", t.HasClassifier()),
		zap.Int("max_depth", cfg.Search.MaxDepth),
		zap.Int("root_max_depth", cfg.Search.RootMaxDepth),
		zap.Int("result_cap", cfg.Search.ResultCap))

	return NewEngine(t, w, root,
		WithLogger(logs.Get(logging.CategoryCore)),
		WithQueryLogger(logs.Get(logging.CategoryQuery)),
		WithMetrics(m),
		WithDispatcher(dispatch.NewLogDispatcher(logs.Get(logging.CategoryDispatch), m)),
	), nil
}
