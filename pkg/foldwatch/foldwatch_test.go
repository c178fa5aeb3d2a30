package foldwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchWakesOnFileCreate(t *testing.T) {
	dir := t.TempDir()
	w := Watch(dir, nil)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.jpg"), []byte("x"), 0o644))

	select {
	case <-w.Chan():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for early-wake signal")
	}
}

func TestWatchDegradesGracefullyOnMissingDir(t *testing.T) {
	w := Watch(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	defer w.Close()

	select {
	case <-w.Chan():
		t.Fatal("unexpected wake from a watcher with no valid directory")
	case <-time.After(100 * time.Millisecond):
	}
	assert.NotNil(t, w)
}
