// Package watch re-runs a search whenever the tree under its root changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"nlfind/internal/core"
	"nlfind/internal/query"
)

// Searcher runs one search. *core.Engine satisfies it.
type Searcher interface {
	Search(ctx context.Context, req query.Request) (*core.Result, error)
}

// Handler receives every search outcome, the initial one included.
type Handler func(res *core.Result, err error)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches the root and its immediate subdirectories and re-runs the
// request once events have been quiet for the debounce window.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	searcher Searcher
	req      query.Request
	root     string
	handler  Handler
	debounce time.Duration
	skip     map[string]bool
	logger   *zap.Logger

	pending   bool
	lastEvent time.Time
	stats     Stats

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a re-run.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSkipDirs names subdirectories that are never watched.
func WithSkipDirs(names []string) Option {
	return func(w *Watcher) {
		for _, n := range names {
			w.skip[n] = true
		}
	}
}

// New creates a Watcher for req. root must be an existing directory; it is
// normally the engine's resolved root for req.
func New(searcher Searcher, req query.Request, root string, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	req.Root = abs
	w := &Watcher{
		fsw:      fsw,
		searcher: searcher,
		req:      req,
		root:     abs,
		handler:  handler,
		debounce: 500 * time.Millisecond,
		skip:     make(map[string]bool),
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start runs the initial search, registers the watches and returns. Events
// are handled on a background goroutine until Stop or ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsw.Add(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.fsw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Warn("cannot list watch root", zap.String("root", w.root), zap.Error(err))
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addDir(filepath.Join(w.root, e.Name()))
		}
	}
	w.logger.Info("watching", zap.String("root", w.root), zap.Int("dirs", len(w.fsw.WatchList())))

	w.execute(ctx)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the watches. It is safe on a
// Watcher that was never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fsw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("closing watcher", zap.Error(err))
	}
	w.logger.Debug("watcher stopped")
}

// Run starts the watcher and blocks until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if w.settled(time.Now()) {
				w.execute(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	// new top-level directories join the watch set
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addDir(event.Name)
		}
	}

	w.logger.Debug("change", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = w.lastEvent
	w.mu.Unlock()
}

// settled reports whether a change is pending and the debounce window has
// passed, clearing the pending flag if so.
func (w *Watcher) settled(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || now.Sub(w.lastEvent) < w.debounce {
		return false
	}
	w.pending = false
	return true
}

func (w *Watcher) execute(ctx context.Context) {
	res, err := w.searcher.Search(ctx, w.req)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	w.stats.Runs++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()

	if w.handler != nil {
		w.handler(res, err)
	}
}

func (w *Watcher) addDir(dir string) {
	if w.skip[filepath.Base(dir)] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		level := zap.WarnLevel
		if errors.Is(err, fs.ErrPermission) {
			level = zap.DebugLevel
		}
		w.logger.Log(level, "cannot watch directory", zap.String("dir", dir), zap.Error(err))
	}
}
