package folder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

type fakeFileImporter struct {
	status importer.Status
}

func (f fakeFileImporter) ImportFile(ctx context.Context, path string, opts importer.ImportFileOptions, tags importer.ServiceKeysToTags, wantMediaResult bool, url string) (importer.Status, importer.ImportResult, error) {
	return f.status, importer.ImportResult{Hash: importer.Hash(path), Path: path}, nil
}

type fakeMime struct{ mime string }

func (f fakeMime) GetMime(path string) (string, error) { return f.mime, nil }

type passthroughPaths struct{}

func (passthroughPaths) GetAllPaths(raw []string) ([]string, error) { return raw, nil }

func waitForCheck(t *testing.T, f *Folder) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		checked := !f.lastChecked.IsZero()
		f.mu.Unlock()
		if checked {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for folder tick")
}

func TestFolderImportsAndDeletesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := Config{
		Name:   "test",
		Path:   dir,
		Mimes:  map[string]bool{"image/jpeg": true},
		Period: 0,
	}
	f := New(cfg, Deps{
		FileImporter: fakeFileImporter{status: importer.StatusSuccessful},
		Mime:         fakeMime{mime: "image/jpeg"},
		Paths:        passthroughPaths{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx, "page-1")

	waitForCheck(t, f)
	time.Sleep(50 * time.Millisecond)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFolderIgnoresUninterestingMime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := Config{
		Name:   "test",
		Path:   dir,
		Mimes:  map[string]bool{"image/jpeg": true},
		Period: time.Hour,
	}
	f := New(cfg, Deps{
		FileImporter: fakeFileImporter{status: importer.StatusSuccessful},
		Mime:         fakeMime{mime: "text/plain"},
		Paths:        passthroughPaths{},
	})

	f.doWork(context.Background(), "page-1")

	info, ok := f.cache.GetSeedInfo(path)
	require.True(t, ok)
	assert.Equal(t, importer.StatusUninterestingMime, importer.Status(info.Status))

	_, err := os.Stat(path)
	assert.NoError(t, err) // ignored files are left on disk
}

func TestMovePathRenamesOnCollision(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()

	src := filepath.Join(srcDir, "a.jpg")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "a.jpg"), []byte("existing"), 0o644))

	require.NoError(t, movePath(src, destDir))

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSetPathResetsCache(t *testing.T) {
	dir := t.TempDir()
	f := New(Config{Name: "test", Path: dir}, Deps{})

	f.cache.AddSeed(filepath.Join(dir, "old.jpg"))
	require.True(t, f.cache.HasSeed(filepath.Join(dir, "old.jpg")))

	newDir := t.TempDir()
	f.SetPath(newDir)

	assert.False(t, f.cache.HasSeed(filepath.Join(dir, "old.jpg")))
	assert.Equal(t, newDir, f.cfg.Path)
}

func TestSetMimesPurgesUninterestingSeeds(t *testing.T) {
	dir := t.TempDir()
	f := New(Config{Name: "test", Path: dir, Mimes: map[string]bool{"image/jpeg": true}}, Deps{})

	txt := filepath.Join(dir, "a.txt")
	jpg := filepath.Join(dir, "a.jpg")
	f.cache.AddSeed(txt)
	require.NoError(t, f.cache.UpdateSeedStatus(txt, "uninteresting_mime", ""))
	f.cache.AddSeed(jpg)
	require.NoError(t, f.cache.UpdateSeedStatus(jpg, "successful", ""))

	f.SetMimes(map[string]bool{"image/jpeg": true, "text/plain": true})

	assert.False(t, f.cache.HasSeed(txt))
	assert.True(t, f.cache.HasSeed(jpg))
	assert.Equal(t, map[string]bool{"image/jpeg": true, "text/plain": true}, f.cfg.Mimes)
}

func TestActionPathsPausesOnError(t *testing.T) {
	dir := t.TempDir()
	f := New(Config{Name: "test", Path: dir}, Deps{
		FileImporter: fakeFileImporter{status: importer.StatusSuccessful},
	})

	f.cfg.Actions = Actions{importer.StatusSuccessful: importer.ActionMove}
	f.cfg.ActionLocations = ActionLocations{importer.StatusSuccessful: "/nonexistent/destination/path"}

	real := filepath.Join(dir, "real.jpg")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))
	f.cache.AddSeed(real)
	require.NoError(t, f.cache.UpdateSeedStatus(real, "successful", ""))

	f.actionPaths(context.Background())

	_, paused := f.GetStatus()
	assert.True(t, paused)
}
