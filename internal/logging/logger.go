// Package logging builds config-driven categorized zap loggers for nlfind.
// Each subsystem logs through a named child logger so output can be filtered
// per category; categories switched off in config get a no-op logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nlfind/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config loading
	CategoryPerception Category = "perception" // NL -> filters/classification
	CategoryQuery      Category = "query"      // Query compilation
	CategoryWorld      Category = "world"      // Filesystem walk
	CategoryCore       Category = "core"       // Search orchestration
	CategoryDispatch   Category = "dispatch"   // Action plans
	CategoryWatch      Category = "watch"      // Watch mode
)

// Factory hands out category loggers derived from one base logger.
type Factory struct {
	base *zap.Logger
	cfg  config.LoggingConfig
}

// NewFactory wraps an existing logger. A nil base yields no-op loggers.
func NewFactory(base *zap.Logger, cfg config.LoggingConfig) *Factory {
	if base == nil {
		base = zap.NewNop()
	}
	return &Factory{base: base, cfg: cfg}
}

// Get returns the logger for a category.
func (f *Factory) Get(cat Category) *zap.Logger {
	if f == nil {
		return zap.NewNop()
	}
	if !f.cfg.IsCategoryEnabled(string(cat)) {
		return zap.NewNop()
	}
	return f.base.Named(string(cat))
}

// Base returns the root logger.
func (f *Factory) Base() *zap.Logger {
	if f == nil {
		return zap.NewNop()
	}
	return f.base
}

// New builds a zap logger from config. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "json":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = []string{cfg.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a config level name onto a zap level. Empty means warn.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zapcore.WarnLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
