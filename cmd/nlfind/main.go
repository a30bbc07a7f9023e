package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nlfind/internal/config"
	"nlfind/internal/core"
	"nlfind/internal/logging"
	"nlfind/internal/metrics"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	rootDir     string
	jsonOutput  bool
	metricsFile string
	timeout     time.Duration

	// Loaded once per invocation
	cfg      *config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nlfind [query...]",
	Short: "Find files with a plain-language query",
	Long: `nlfind turns a request such as "pdf files larger than 2MB from last week"
into a structured query and walks the filesystem for matches.

Searches start at the configured default root (your home directory unless
set otherwise) and stay shallow there; --root starts elsewhere with the
full depth limit. Delete and organize requests are planned, never executed.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && requestJSON == "" && searchFlags.empty() {
			return cmd.Help()
		}
		return runSearch(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "Directory to search instead of the default root")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout for one search")

	addSearchFlags(rootCmd)
	addSearchFlags(searchCmd)
	addSearchFlags(classifyCmd)
	addSearchFlags(watchCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// setup loads config and builds the logger and metrics recorder.
func setup(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	logger, err = logging.New(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	recorder = metrics.New()
	logger.Debug("config loaded", zap.String("path", path), zap.String("command", cmd.Name()))
	return nil
}

func teardown() {
	if metricsFile != "" && recorder != nil {
		if err := recorder.WriteTextfile(metricsFile); err != nil && logger != nil {
			logger.Warn("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// bootEngine builds the engine from the loaded config.
func bootEngine(ctx context.Context) (*core.Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return core.Boot(ctx, cfg, logFactory(), recorder)
}

// logFactory hands out category loggers honoring the config toggles.
func logFactory() *logging.Factory {
	return logging.NewFactory(logger, cfg.Logging)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, and after d
// when d is positive.
func signalContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		cancel()
		stop()
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
