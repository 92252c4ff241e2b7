package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/watcher"
)

func startWatcher(t *testing.T, paths ...string) <-chan []watcher.Change {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		Paths:       paths,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brand.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	onChange := startWatcher(t, path)

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"n":%d}`, i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case batch := <-onChange:
		require.Len(t, batch, 1)
		assert.Equal(t, filepath.Base(path), filepath.Base(batch[0].Path))
		assert.False(t, batch[0].Removed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_BatchesFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("{}"), 0644))

	onChange := startWatcher(t, a, b)
	require.NoError(t, os.WriteFile(b, []byte(`{"x":1}`), 0644))
	require.NoError(t, os.WriteFile(a, []byte(`{"x":1}`), 0644))

	select {
	case batch := <-onChange:
		require.Len(t, batch, 2)
		assert.Equal(t, "a.json", filepath.Base(batch[0].Path), "sorted by path")
		assert.Equal(t, "b.json", filepath.Base(batch[1].Path))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	onChange := startWatcher(t, path)
	require.NoError(t, os.Remove(path))

	select {
	case batch := <-onChange:
		require.Len(t, batch, 1)
		assert.True(t, batch[0].Removed)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for removal")
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brand.json")
	otherPath := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(otherPath, []byte("initial"), 0644))

	onChange := startWatcher(t, path)
	require.NoError(t, os.WriteFile(otherPath, []byte("other content"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brand.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	w, err := watcher.New(watcher.Config{Paths: []string{path}, DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.Config{Paths: []string{"/does/not/exist/brand.json"}})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig([]string{"/icons/brand.json"})

	assert.Equal(t, []string{"/icons/brand.json"}, cfg.Paths)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDur)
}
