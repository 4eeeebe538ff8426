package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

const watchedConfigYAML = `
service:
  externalName: monitor.example.com
scheduler:
  workers: %d
`

func writeWatched(t *testing.T, path string, workers int) {
	t.Helper()
	content := fmt.Sprintf(watchedConfigYAML, workers)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher("config.yaml", nil,
		WithDebounceDelay(time.Second),
		WithLogger(observability.NopLogger()),
		WithErrorCallback(func(error) {}),
	)

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.path))
	assert.Equal(t, time.Second, w.debounceDelay)
	assert.NotNil(t, w.errorCallback)
	assert.Nil(t, w.LastConfig())
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatched(t, path, 7)

	var got *MonitorConfig
	w, err := NewWatcher(path, func(cfg *MonitorConfig) { got = cfg })
	require.NoError(t, err)

	require.NoError(t, w.Reload())
	require.NotNil(t, got)
	assert.Equal(t, 7, got.Scheduler.Workers)
	assert.Same(t, got, w.LastConfig())
}

func TestWatcher_Reload_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  workers: -3\n"), 0o600))

	var reported error
	called := false
	w, err := NewWatcher(path, func(*MonitorConfig) { called = true },
		WithErrorCallback(func(err error) { reported = err }),
	)
	require.NoError(t, err)

	assert.Error(t, w.Reload())
	assert.Error(t, reported)
	assert.False(t, called)
	assert.Nil(t, w.LastConfig())
}

func TestWatcher_Run_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatched(t, path, 2)

	var mu sync.Mutex
	var workers []int
	w, err := NewWatcher(path, func(cfg *MonitorConfig) {
		mu.Lock()
		workers = append(workers, cfg.Scheduler.Workers)
		mu.Unlock()
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeWatched(t, path, 9)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(workers) > 0 && workers[len(workers)-1] == 9
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
