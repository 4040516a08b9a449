package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if slices.Contains(b, path) {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func start(t *testing.T, roots []string, debounce time.Duration) *recorder {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Watch(ctx, roots, debounce, logger, rec.record)
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestWatch_NewFile(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, []string{dir}, 50*time.Millisecond)

	path := filepath.Join(dir, "new.md")
	_ = os.WriteFile(path, []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(path)
	}, "new file not reported")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, []string{dir}, 50*time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("batches = %d, want 0", rec.count())
	}
}

func TestWatch_Debounces(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, []string{dir}, 300*time.Millisecond)

	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.md")
	_ = os.WriteFile(a, []byte("1"), 0o644)
	_ = os.WriteFile(b, []byte("1"), 0o644)
	_ = os.WriteFile(a, []byte("2"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(a) && rec.seen(b)
	}, "changes not reported")
	if rec.count() != 1 {
		t.Errorf("batches = %d, want 1", rec.count())
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	dir := t.TempDir()
	rec := start(t, []string{dir}, 50*time.Millisecond)

	sub := filepath.Join(dir, "subdir")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)

	deep := filepath.Join(sub, "deep.md")
	_ = os.WriteFile(deep, []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(deep)
	}, "file in new subdir not reported")
}

func TestWatch_Remove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "del.md")
	_ = os.WriteFile(path, []byte("# Delete Me"), 0o644)
	rec := start(t, []string{dir}, 50*time.Millisecond)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(path)
	}, "removal not reported")
}

func TestWatch_MissingRoot(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := Watch(context.Background(), []string{filepath.Join(t.TempDir(), "absent")}, 0, logger, func([]string) {})
	if err == nil {
		t.Error("expected error for missing root")
	}
}
