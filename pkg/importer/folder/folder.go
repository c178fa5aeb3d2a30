/*
Copyright 2013 Google Inc.
Copyright 2026 The Hydrus Go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package folder implements the watched-folder importer: a directory
// polled on a fixed period (optionally woken early by a filesystem watch),
// whose new entries are expanded, MIME-filtered, imported, and then
// deleted, moved or left alone according to the terminal status they
// reach.
package folder

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/seedcache"
)

const (
	serializableVersion = 1
	serializableType    = "import_folder"
)

func init() {
	importer.Register(serializableType, func() importer.Snapshot { return &Folder{} })
}

// Actions maps a terminal seed status to the post-import action to apply
// to its source path.
type Actions map[importer.Status]importer.PostImportAction

// ActionLocations gives the destination directory for statuses whose
// action is ActionMove.
type ActionLocations map[importer.Status]string

// DefaultActions mirrors the factory defaults: successful, redundant and
// already-deleted seeds are removed from disk; a failed import is left in
// place for inspection.
func DefaultActions() Actions {
	return Actions{
		importer.StatusSuccessful: importer.ActionDelete,
		importer.StatusRedundant:  importer.ActionDelete,
		importer.StatusDeleted:    importer.ActionDelete,
		importer.StatusFailed:     importer.ActionIgnore,
	}
}

// Config is a watched folder's persisted settings.
type Config struct {
	Name              string
	Path              string
	ImportFileOptions importer.ImportFileOptions
	Mimes             map[string]bool
	Actions           Actions
	ActionLocations   ActionLocations
	Period            time.Duration
	OpenPopup         bool
	Tag               string // applied as a local tag on every import when non-empty
}

// Deps bundles Folder's collaborators.
type Deps struct {
	FileImporter importer.FileImporter
	Folders      importer.FolderRecorder
	Mime         importer.MimeDetector
	Paths        importer.PathExpander
	Events       importer.EventBus
	Lifecycle    importer.PageLifecycle
	Logger       *zap.Logger
	Clock        func() time.Time
	// EarlyWake, if non-nil, is watched between ticks; a value received
	// on it forces an immediate check regardless of Period.
	EarlyWake <-chan struct{}
}

// Folder is the watched-folder importer.
type Folder struct {
	mu sync.Mutex

	cfg         Config
	cache       *seedcache.SeedCache
	lastChecked time.Time
	paused      bool

	deps Deps
	log  *zap.Logger
}

// New constructs a Folder over cfg, with an empty Seed Cache.
func New(cfg Config, deps Deps) *Folder {
	if cfg.Actions == nil {
		cfg.Actions = DefaultActions()
	}
	if cfg.ActionLocations == nil {
		cfg.ActionLocations = ActionLocations{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Folder{
		cfg:   cfg,
		cache: seedcache.New(seedcache.WithSink(cacheSink{deps.Events})),
		deps:  deps,
		log:   log,
	}
}

type cacheSink struct{ bus importer.EventBus }

func (s cacheSink) Publish(e seedcache.Event) {
	if s.bus != nil {
		s.bus.Publish(importer.TopicSeedCacheSeedUpdated, e.Seed)
	}
}

func (f *Folder) SerializableVersion() int { return serializableVersion }
func (f *Folder) SerializableType() string { return serializableType }

func (f *Folder) GetSeedCache() *seedcache.SeedCache { return f.cache }

func (f *Folder) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

func (f *Folder) Resume() {
	f.mu.Lock()
	f.paused = false
	f.mu.Unlock()
}

func (f *Folder) PausePlay() {
	f.mu.Lock()
	f.paused = !f.paused
	f.mu.Unlock()
}

func (f *Folder) GetStatus() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, _ := f.cache.GetStatus()
	return status, f.paused
}

func (f *Folder) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// SetPath changes the watched directory. Seeds discovered under the old
// path have no bearing on the new one, so the cache is reset rather than
// carried forward.
func (f *Folder) SetPath(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg.Path == path {
		return
	}
	f.cfg.Path = path
	f.cache = seedcache.New(seedcache.WithSink(cacheSink{f.deps.Events}))
}

// SetMimes changes the allowed MIME set. Seeds previously rejected as
// UNINTERESTING_MIME are purged from the cache so the next tick
// re-discovers and re-evaluates them against the new set; every other
// seed (pending, successful, failed, ...) is left untouched.
func (f *Folder) SetMimes(mimes map[string]bool) {
	f.mu.Lock()
	f.cfg.Mimes = mimes
	cache := f.cache
	f.mu.Unlock()
	cache.RemoveSeeds(seedcache.Status(importer.StatusUninterestingMime))
}

func (f *Folder) duePeriod() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deps.Clock().Sub(f.lastChecked) >= f.cfg.Period
}

func (f *Folder) markChecked() {
	f.mu.Lock()
	f.lastChecked = f.deps.Clock()
	f.mu.Unlock()
}

// Start launches the polling worker goroutine. It returns immediately.
func (f *Folder) Start(ctx context.Context, pageKey string) {
	go f.run(ctx, pageKey)
}

func (f *Folder) run(ctx context.Context, pageKey string) {
	wake := f.deps.EarlyWake
	early := false

	for {
		if ctx.Err() != nil {
			return
		}
		if f.deps.Lifecycle != nil && f.deps.Lifecycle.PageDeleted(pageKey) {
			return
		}

		if !f.isPaused() && (early || f.duePeriod()) {
			f.doWork(ctx, pageKey)
			f.markChecked()
			early = false
		}

		ok, woke := f.waitTick(ctx, wake)
		if !ok {
			return
		}
		early = early || woke
	}
}

// waitTick blocks until the next poll is worth attempting: a short
// interval passes, an early-wake signal arrives (woke is true), or ctx is
// canceled (ok is false).
func (f *Folder) waitTick(ctx context.Context, wake <-chan struct{}) (ok, woke bool) {
	t := time.NewTimer(time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false, false
	case <-t.C:
		return true, false
	case <-wake:
		return true, true
	}
}

// doWork performs exactly one tick: list, expand, filter by MIME, import
// each new seed, announce successes, then apply post-import actions.
func (f *Folder) doWork(ctx context.Context, pageKey string) {
	f.mu.Lock()
	root := f.cfg.Path
	f.mu.Unlock()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		f.log.Warn("list folder failed", zap.String("path", root), zap.Error(err))
		return
	}

	raw := make([]string, 0, len(entries))
	for _, e := range entries {
		raw = append(raw, filepath.Join(root, e.Name()))
	}

	allPaths := raw
	if f.deps.Paths != nil {
		expanded, err := f.deps.Paths.GetAllPaths(raw)
		if err != nil {
			f.log.Warn("expand paths failed", zap.Error(err))
		} else {
			allPaths = expanded
		}
	}

	for _, p := range allPaths {
		if !f.cache.HasSeed(p) {
			f.cache.AddSeed(p)
		}
	}

	var successfulHashes []importer.Hash

	for {
		path, ok := f.cache.GetNextSeed(seedcache.StatusUnknown)
		if !ok || ctx.Err() != nil {
			break
		}

		status, hash := f.importOne(ctx, path)
		if status == importer.StatusSuccessful {
			successfulHashes = append(successfulHashes, hash)
		}
	}

	if f.cfg.OpenPopup && len(successfulHashes) > 0 && f.deps.Events != nil {
		f.deps.Events.Publish(importer.TopicMessage, successfulHashes)
	}

	f.actionPaths(ctx)

	if f.deps.Folders != nil {
		snapshot := importer.FolderSnapshot{Name: f.cfg.Name, Path: root}
		if err := f.deps.Folders.ImportFolder(ctx, snapshot); err != nil {
			f.log.Warn("persist folder config failed", zap.Error(err))
		}
	}
}

func (f *Folder) importOne(ctx context.Context, path string) (importer.Status, importer.Hash) {
	mime := ""
	if f.deps.Mime != nil {
		m, err := f.deps.Mime.GetMime(path)
		if err != nil {
			_ = f.cache.UpdateSeedStatus(path, seedcache.Status(importer.StatusFailed), err.Error())
			return importer.StatusFailed, ""
		}
		mime = m
	}

	if len(f.cfg.Mimes) > 0 && !f.cfg.Mimes[mime] {
		_ = f.cache.UpdateSeedStatus(path, seedcache.Status(importer.StatusUninterestingMime), "")
		return importer.StatusUninterestingMime, ""
	}

	tags := importer.ServiceKeysToTags{}
	if f.cfg.Tag != "" {
		tags["local"] = []string{f.cfg.Tag}
	}

	status, result, err := f.deps.FileImporter.ImportFile(ctx, path, f.cfg.ImportFileOptions, tags, false, "")
	if err != nil {
		_ = f.cache.UpdateSeedStatus(path, seedcache.Status(importer.StatusFailed), err.Error())
		f.log.Warn("import folder file failed", zap.String("folder", f.cfg.Name), zap.String("path", path), zap.Error(err))
		return importer.StatusFailed, ""
	}

	_ = f.cache.UpdateSeedStatus(path, seedcache.Status(status), "")
	return status, result.Hash
}

// actionPaths applies each status's configured post-import action to every
// seed currently at that status, draining the matching seeds from the
// cache as it goes. A delete/move failure pauses the folder, matching the
// teacher's fail-safe stance on unexpected filesystem errors.
func (f *Folder) actionPaths(ctx context.Context) {
	for _, status := range []importer.Status{
		importer.StatusSuccessful,
		importer.StatusRedundant,
		importer.StatusDeleted,
		importer.StatusFailed,
	} {
		action := f.cfg.Actions[status]

		switch action {
		case importer.ActionDelete:
			f.drain(status, func(path string) error {
				if _, err := os.Stat(path); err == nil {
					return os.Remove(path)
				}
				return nil
			})
		case importer.ActionMove:
			destDir := f.cfg.ActionLocations[status]
			f.drain(status, func(path string) error {
				return movePath(path, destDir)
			})
		case importer.ActionIgnore, "":
			// Leave the seed where it is.
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// drain removes every seed at status from the cache, applying apply to
// each one first. The first error pauses the folder and stops the drain.
func (f *Folder) drain(status importer.Status, apply func(path string) error) {
	for {
		path, ok := f.cache.GetNextSeed(seedcache.Status(status))
		if !ok {
			return
		}

		if err := apply(path); err != nil {
			f.log.Error("import folder post-action failed", zap.String("folder", f.cfg.Name), zap.String("path", path), zap.Error(err))
			f.Pause()
			return
		}

		f.cache.RemoveSeed(path)
	}
}

// movePath moves path into destDir, appending a random digit to the
// destination filename on collision until one is free.
func movePath(path, destDir string) error {
	if _, err := os.Stat(path); err != nil {
		return nil // already gone; nothing to move
	}

	dest := filepath.Join(destDir, filepath.Base(path))
	for {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest += string(rune('0' + rand.Intn(10)))
	}

	return os.Rename(path, dest)
}
