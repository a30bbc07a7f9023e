package world

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nlfind/internal/config"
	"nlfind/internal/metrics"
	"nlfind/internal/types"
)

// Options controls one Walker.
type Options struct {
	// AnchorRoot is the directory whose subtree is limited to RootMaxDepth.
	AnchorRoot string
	// RootMaxDepth caps scanning below AnchorRoot.
	RootMaxDepth int
	// MaxDepth caps scanning below the walk start.
	MaxDepth int
	// ResultCap stops the walk once this many entries matched.
	ResultCap int
	// StatWorkers caps concurrent Lstat calls within one directory.
	StatWorkers int
	// FollowSymlinks descends into symlinked directories.
	FollowSymlinks bool
	// SkipDirs are listed but never descended into.
	SkipDirs []string
	// FS defaults to OSFileSystem.
	FS FileSystem
	// Now defaults to time.Now; fixed in tests.
	Now func() time.Time
}

// OptionsFromConfig builds walker options from the search config.
// anchor is the resolved default root.
func OptionsFromConfig(cfg config.SearchConfig, anchor string) Options {
	return Options{
		AnchorRoot:     anchor,
		RootMaxDepth:   cfg.RootMaxDepth,
		MaxDepth:       cfg.MaxDepth,
		ResultCap:      cfg.ResultCap,
		StatWorkers:    cfg.StatWorkers,
		FollowSymlinks: cfg.FollowSymlinks,
		SkipDirs:       append([]string(nil), cfg.SkipDirs...),
	}
}

// Stats summarizes one walk.
type Stats struct {
	DirsScanned   int  `json:"dirs_scanned"`
	EntriesSeen   int  `json:"entries_seen"`
	Skipped       int  `json:"skipped"`
	Matched       int  `json:"matched"`
	DeepestLevel  int  `json:"deepest_level"`
	Truncated     bool `json:"truncated"`
	SymlinkCycles int  `json:"symlink_cycles,omitempty"`
}

// Walker runs bounded tree walks. A Walker is safe for concurrent use; all
// per-walk state lives in a walkState.
type Walker struct {
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewWalker creates a Walker. Zero limits fall back to the defaults.
func NewWalker(opts Options, logger *zap.Logger, m *metrics.Recorder) *Walker {
	def := config.DefaultSearchConfig()
	if opts.ResultCap <= 0 {
		opts.ResultCap = def.ResultCap
	}
	if opts.StatWorkers <= 0 {
		opts.StatWorkers = def.StatWorkers
	}
	if opts.RootMaxDepth < 0 {
		opts.RootMaxDepth = 0
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.FS == nil {
		opts.FS = OSFileSystem{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AnchorRoot != "" {
		if abs, err := filepath.Abs(opts.AnchorRoot); err == nil {
			opts.AnchorRoot = abs
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{opts: opts, logger: logger, metrics: m}
}

// Options returns the effective options.
func (w *Walker) Options() Options {
	return w.opts
}

// walkState is owned by a single Walk call.
type walkState struct {
	root     string
	realRoot string
	q        types.Query
	pattern  string
	now      time.Time

	matched atomic.Int64
	capped  bool // work was left undone because the cap was hit
	results []types.FileEntry
	stats   Stats
	visited map[string]bool
}

// statResult is the outcome of one sibling Lstat.
type statResult struct {
	info fs.FileInfo
	err  error
}

// Walk scans root for entries matching q. Directories are scanned in name
// order and matches are returned in the order found. Only a problem with
// root itself is returned as an error (InvalidPath or UnreadableRoot), apart
// from ctx cancellation, which is checked at every directory.
func (w *Walker) Walk(ctx context.Context, root string, q types.Query) ([]types.FileEntry, Stats, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, Stats{}, types.NewError(types.KindInvalidPath, root, "cannot resolve search root", err)
	}

	info, err := w.opts.FS.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, Stats{}, types.NewError(types.KindInvalidPath, abs, "search root does not exist", err)
	case err != nil:
		return nil, Stats{}, types.NewError(types.KindUnreadableRoot, abs, "cannot stat search root", err)
	case !info.IsDir():
		return nil, Stats{}, types.NewError(types.KindInvalidPath, abs, "search root is not a directory", nil)
	}

	st := &walkState{
		root:    abs,
		q:       q,
		pattern: q.TextPattern(),
		now:     w.opts.Now(),
	}
	if w.opts.FollowSymlinks {
		st.visited = make(map[string]bool)
		st.realRoot = abs
		if real, err := w.opts.FS.EvalSymlinks(abs); err == nil {
			st.realRoot = real
		}
	}

	entries, err := w.opts.FS.ReadDir(abs)
	if err != nil {
		return nil, Stats{}, types.NewError(types.KindUnreadableRoot, abs, "cannot read search root", err)
	}

	if err := w.scanDir(ctx, st, abs, entries, 0, w.opts.MaxDepth); err != nil {
		return nil, st.stats, err
	}

	st.stats.Matched = int(st.matched.Load())
	st.stats.Truncated = st.capped
	w.logger.Debug("walk finished",
		zap.String("root", abs),
		zap.Int("matched", st.stats.Matched),
		zap.Int("dirs", st.stats.DirsScanned),
		zap.Int("skipped", st.stats.Skipped),
		zap.Bool("truncated", st.stats.Truncated))
	return st.results, st.stats, nil
}

// capReached reports whether the cap is hit. Callers only ask when more
// work remains, so a true answer also marks the walk truncated.
func (w *Walker) capReached(st *walkState) bool {
	if st.matched.Load() < int64(w.opts.ResultCap) {
		return false
	}
	st.capped = true
	return true
}

// scanDir evaluates one directory at depth and recurses into its
// subdirectories while depth+1 stays within limit. limit is absolute (counted
// from the walk start) and only ever tightens on the way down.
func (w *Walker) scanDir(ctx context.Context, st *walkState, dir string, entries []fs.DirEntry, depth, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.capReached(st) {
		return nil
	}

	if w.opts.AnchorRoot != "" && dir == w.opts.AnchorRoot {
		limit = min(limit, depth+w.opts.RootMaxDepth)
	}
	if depth > limit {
		return nil
	}

	st.stats.DirsScanned++
	st.stats.EntriesSeen += len(entries)
	st.stats.DeepestLevel = max(st.stats.DeepestLevel, depth)
	w.metrics.RecordDirScanned(len(entries))

	infos := w.statAll(dir, entries)

	var subdirs []string
	for i, entry := range entries {
		if w.capReached(st) {
			break
		}

		full := filepath.Join(dir, entry.Name())
		res := infos[i]
		if res.err != nil {
			w.skip(st, full, "stat", res.err)
			continue
		}

		info := res.info
		descend := info.IsDir()
		if info.Mode()&fs.ModeSymlink != 0 && w.opts.FollowSymlinks {
			if target, ok := w.followLink(st, full); ok {
				info = target
				descend = target.IsDir()
			}
		}

		fe := types.FileEntry{
			Name:        entry.Name(),
			FullPath:    full,
			IsDirectory: info.IsDir(),
			ModifiedAt:  info.ModTime(),
			Extension:   types.ExtensionOf(entry.Name()),
		}
		if !fe.IsDirectory && info.Size() > 0 {
			fe.SizeBytes = uint64(info.Size())
		}

		if Matches(fe, st.q, st.pattern, st.now) {
			st.results = append(st.results, fe)
			st.matched.Add(1)
		}

		if descend {
			rel, _ := filepath.Rel(st.root, full)
			if isSkippedDir(rel, entry.Name(), w.opts.SkipDirs) {
				continue
			}
			subdirs = append(subdirs, full)
		}
	}

	if depth+1 > limit {
		return nil
	}
	for _, sub := range subdirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.capReached(st) {
			return nil
		}
		children, err := w.opts.FS.ReadDir(sub)
		if err != nil {
			w.skip(st, sub, "read", err)
			continue
		}
		if err := w.scanDir(ctx, st, sub, children, depth+1, limit); err != nil {
			return err
		}
	}
	return nil
}

// statAll lstats every entry concurrently and returns results in entry order.
func (w *Walker) statAll(dir string, entries []fs.DirEntry) []statResult {
	out := make([]statResult, len(entries))
	var g errgroup.Group
	g.SetLimit(w.opts.StatWorkers)
	for i, entry := range entries {
		g.Go(func() error {
			info, err := w.opts.FS.Lstat(filepath.Join(dir, entry.Name()))
			out[i] = statResult{info: info, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// followLink stats a symlink's target. Directory links that point back into
// the walked tree, or at a directory already reached through another link,
// are not followed; that ends every cycle.
func (w *Walker) followLink(st *walkState, full string) (fs.FileInfo, bool) {
	target, err := w.opts.FS.Stat(full)
	if err != nil {
		w.logger.Debug("dangling symlink", zap.String("path", full), zap.Error(err))
		return nil, false
	}
	if !target.IsDir() {
		return target, true
	}
	real, err := w.opts.FS.EvalSymlinks(full)
	if err != nil {
		return nil, false
	}
	if st.visited[real] || isWithin(real, st.realRoot) {
		st.stats.SymlinkCycles++
		w.logger.Debug("symlink cycle broken", zap.String("path", full), zap.String("target", real))
		return nil, false
	}
	st.visited[real] = true
	return target, true
}

func (w *Walker) skip(st *walkState, path, reason string, err error) {
	st.stats.Skipped++
	w.metrics.RecordSkipped(reason)
	w.logger.Debug("entry skipped",
		zap.String("path", path),
		zap.String("reason", reason),
		zap.Error(types.NewError(types.KindPermissionDenied, path, "unreadable entry", err)))
}

// isWithin reports whether path equals dir or lies below it.
func isWithin(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

// Matches applies the per-entry predicates in order: type filter (files
// only), modified window, size range (files only), then the inclusion rule.
// pattern is the lowercase text pattern; empty matches every name.
func Matches(e types.FileEntry, q types.Query, pattern string, now time.Time) bool {
	typed := false
	if !e.IsDirectory && q.HasTypeFilter() {
		if !q.HasFileType(e.Extension) {
			return false
		}
		typed = true
	}
	if !q.ModifiedWindow().Matches(e.ModifiedAt, now) {
		return false
	}
	if !e.IsDirectory {
		if sr := q.SizeRange(); !sr.Contains(e.SizeBytes) {
			return false
		}
	}

	if pattern == "" || typed {
		return true
	}
	if strings.Contains(strings.ToLower(e.Name), pattern) {
		return true
	}
	return e.Extension != "" && strings.Contains(e.Extension, pattern)
}
