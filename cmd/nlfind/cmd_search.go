package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nlfind/internal/core"
	"nlfind/internal/logging"
	"nlfind/internal/query"
	"nlfind/internal/types"
	"nlfind/internal/watch"
)

// searchFlagSet holds the explicit filter flags shared by the search commands.
type searchFlagSet struct {
	types    []string
	minSize  string
	maxSize  string
	modified string
	pattern  string
	action   string
}

func (f *searchFlagSet) empty() bool {
	return len(f.types) == 0 && f.minSize == "" && f.maxSize == "" &&
		f.modified == "" && f.pattern == "" && f.action == ""
}

var (
	searchFlags searchFlagSet
	requestJSON string
	forceInit   bool
)

func addSearchFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringSliceVarP(&searchFlags.types, "type", "t", nil, "Only these extensions (repeatable, e.g. -t pdf -t docx)")
	fl.StringVar(&searchFlags.minSize, "min-size", "", "Minimum size, e.g. 10MB")
	fl.StringVar(&searchFlags.maxSize, "max-size", "", "Maximum size, e.g. 1GB")
	fl.StringVar(&searchFlags.modified, "modified", "", "Modified window: today, this_week, last_week, this_month, last_month, recent")
	fl.StringVarP(&searchFlags.pattern, "pattern", "p", "", "Name fragment to match instead of the query text")
	fl.StringVar(&searchFlags.action, "action", "", "Force the action: search, organize, delete")
	fl.StringVar(&requestJSON, "request", "", `Full request as JSON: "text" or {"text":...,"filters":{...},"root":...}`)
}

// buildRequest assembles a request from --request, positional text and the
// filter flags. Flags win over fields of --request.
func buildRequest(cmd *cobra.Command, args []string) (query.Request, error) {
	var req query.Request
	if requestJSON != "" {
		if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
			return req, fmt.Errorf("invalid --request: %w", err)
		}
	}
	if text := joinArgs(args); text != "" {
		req.Text = text
	}
	if rootDir != "" {
		req.Root = rootDir
	}

	if !searchFlags.empty() {
		if req.Filters == nil {
			req.Filters = &query.Overrides{}
		}
		o := req.Filters
		if len(searchFlags.types) > 0 {
			o.FileTypes = searchFlags.types
		}
		if searchFlags.minSize != "" {
			o.MinSize = searchFlags.minSize
		}
		if searchFlags.maxSize != "" {
			o.MaxSize = searchFlags.maxSize
		}
		if searchFlags.modified != "" {
			o.ModifiedWindow = searchFlags.modified
		}
		if cmd.Flags().Changed("pattern") {
			p := searchFlags.pattern
			o.Pattern = &p
		}
		if searchFlags.action != "" {
			if _, ok := types.ParseAction(searchFlags.action); !ok {
				return req, fmt.Errorf("unknown action %q", searchFlags.action)
			}
			o.Action = searchFlags.action
		}
	}
	return req, req.Validate()
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search for files (the default command)",
	Example: `  nlfind search pdf files from last week
  nlfind search --root ~/Downloads "images larger than 5MB"
  nlfind search -t go --modified today`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	engine, err := bootEngine(ctx)
	if err != nil {
		return err
	}
	res, err := engine.Search(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, jsonOutput)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [query...]",
	Short: "Show the compiled query without searching",
	RunE:  runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	engine, err := bootEngine(ctx)
	if err != nil {
		return err
	}
	q, cls := engine.Compile(ctx, req)
	return printQuery(cmd.OutOrStdout(), q, cls, jsonOutput)
}

var watchCmd = &cobra.Command{
	Use:   "watch [query...]",
	Short: "Re-run a search whenever the tree under the root changes",
	Long: `Runs the search once, then again each time files under the root or its
top-level directories change. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd, args)
	if err != nil {
		return err
	}

	// no overall timeout: watch runs until interrupted
	ctx, cancel := signalContext(0)
	defer cancel()

	engine, err := bootEngine(ctx)
	if err != nil {
		return err
	}
	root, err := engine.ResolveRoot(req.Root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	handler := func(res *core.Result, err error) {
		if err != nil {
			logger.Warn("search failed", zap.Error(err))
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			return
		}
		if !jsonOutput {
			fmt.Fprintln(out, styles.rule.Render(fmt.Sprintf("-- %s --", res.RequestID)))
		}
		if err := printResult(out, res, jsonOutput); err != nil {
			logger.Warn("print failed", zap.Error(err))
		}
	}

	w, err := watch.New(engine, req, root, handler,
		watch.WithDebounce(cfg.GetWatchDebounce()),
		watch.WithSkipDirs(cfg.Search.SkipDirs),
		watch.WithLogger(logFactory().Get(logging.CategoryWatch)))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// exitCode maps errors to process exit codes: 2 for a bad or unreadable
// root, 3 for a timeout, 1 otherwise.
func exitCode(err error) int {
	var te *types.Error
	switch {
	case errors.As(err, &te) && te.Kind.Fatal():
		return 2
	case errors.Is(err, context.DeadlineExceeded):
		return 3
	default:
		return 1
	}
}
