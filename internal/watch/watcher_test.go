package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"nlfind/internal/core"
	"nlfind/internal/query"
	"nlfind/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// countingSearcher returns a result carrying the number of calls so far.
type countingSearcher struct {
	mu    sync.Mutex
	calls int
	reqs  []query.Request
	err   error
}

func (s *countingSearcher) Search(_ context.Context, req query.Request) (*core.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &core.Result{RequestID: strconv.Itoa(s.calls), Root: req.Root}, nil
}

func collect() (Handler, <-chan *core.Result, <-chan error) {
	results := make(chan *core.Result, 16)
	errs := make(chan error, 16)
	return func(res *core.Result, err error) {
		if err != nil {
			errs <- err
			return
		}
		results <- res
	}, results, errs
}

func waitResult(t *testing.T, ch <-chan *core.Result) *core.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a search run")
		return nil
	}
}

func TestWatcher_RerunsOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))

	s := &countingSearcher{}
	h, results, _ := collect()
	w, err := New(s, query.NewRequest("pdf"), root, h,
		WithDebounce(30*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	first := waitResult(t, results)
	assert.Equal(t, root, first.Root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), []byte("x"), 0644))
	waitResult(t, results)

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.pdf"), []byte("x"), 0644))
	waitResult(t, results)

	st := w.Stats()
	assert.GreaterOrEqual(t, st.Runs, 3)
	assert.GreaterOrEqual(t, st.Events, 2)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	s := &countingSearcher{}
	h, results, _ := collect()
	w, err := New(s, query.NewRequest("x"), root, h, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	waitResult(t, results)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte{byte(i)}, 0644))
	}
	waitResult(t, results)

	// the burst collapses into one run
	select {
	case <-results:
		t.Fatal("burst triggered more than one re-run")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_SkipDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0755))

	w, err := New(&countingSearcher{}, query.NewRequest("x"), root, nil, WithSkipDirs([]string{".git"}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	watched := w.fsw.WatchList()
	assert.Contains(t, watched, root)
	assert.Contains(t, watched, filepath.Join(root, "src"))
	assert.NotContains(t, watched, filepath.Join(root, ".git"))
}

func TestWatcher_ReportsSearchErrors(t *testing.T) {
	root := t.TempDir()
	s := &countingSearcher{err: types.NewError(types.KindUnreadableRoot, root, "boom", nil)}
	h, _, errs := collect()
	w, err := New(s, query.NewRequest("x"), root, h)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, types.ErrUnreadableRoot)
	case <-time.After(5 * time.Second):
		t.Fatal("no error delivered")
	}
	assert.Equal(t, 1, w.Stats().Errors)
}

func TestWatcher_RunStopsWithContext(t *testing.T) {
	root := t.TempDir()
	w, err := New(&countingSearcher{}, query.NewRequest("x"), root, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx))
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := New(&countingSearcher{}, query.NewRequest("x"), t.TempDir(), nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}

func TestNew_RejectsBadRoot(t *testing.T) {
	root := t.TempDir()
	_, err := New(&countingSearcher{}, query.NewRequest("x"), filepath.Join(root, "missing"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	file := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = New(&countingSearcher{}, query.NewRequest("x"), file, nil)
	assert.Error(t, err)
}
