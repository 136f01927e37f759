package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Test Plan for Watcher:
// - NewWatcher fails when the config directory does not exist
// - Writing config.yml fires the callback with the reloaded config
// - Invalid edits are skipped and the next valid edit is delivered
// - Unrelated files in the directory are ignored
// - Stop() is idempotent, also when never started

func TestNewWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(NewLoader(t.TempDir()), zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", "log:\n  level: info\n")

	w, err := NewWatcher(NewLoader(tempDir), zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *Config, 4)
	require.NoError(t, w.Start(context.Background(), func(cfg *Config) {
		reloaded <- cfg
	}))

	// unrelated file
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, DirName, "notes.txt"), []byte("x"), 0644))

	// invalid edit, skipped
	writeConfig(t, tempDir, "config.yml", "log:\n  level: shouting\n")
	time.Sleep(400 * time.Millisecond)

	writeConfig(t, tempDir, "config.yml", "log:\n  level: debug\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload was not delivered")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, DirName), 0755))

	w, err := NewWatcher(NewLoader(tempDir), nil)
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
