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

// Package hdd implements the HDD (bulk local-path) importer: a fixed,
// pre-enumerated list of local file paths worked off a Seed Cache one at a
// time, with an optional "delete the source file on success" step.
package hdd

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/seedcache"
)

const (
	serializableVersion = 1
	serializableType    = "hdd_import"
)

func init() {
	importer.Register(serializableType, func() importer.Snapshot { return &Import{} })
}

// Import is the HDD importer. It owns one Seed Cache pre-populated with the
// paths to import and runs a single worker that drains it until every path
// has a terminal status.
type Import struct {
	mu sync.Mutex

	cache             *seedcache.SeedCache
	importFileOptions importer.ImportFileOptions
	pathsToTags       map[string]importer.ServiceKeysToTags
	deleteAfterSuccess bool
	paused            bool

	status      string
	statusCount seedcache.StatusCounts

	fileImporter importer.FileImporter
	events       importer.EventBus
	lifecycle    importer.PageLifecycle
	log          *zap.Logger
}

// Deps bundles the collaborators an Import needs; every caller (production
// wiring or a test) constructs one explicitly rather than relying on a
// package-level singleton.
type Deps struct {
	FileImporter importer.FileImporter
	Events       importer.EventBus
	Lifecycle    importer.PageLifecycle
	Logger       *zap.Logger
}

// New builds an Import over paths, each tagged per pathsToTags (absent
// entries get no tags). deleteAfterSuccess removes a path's source file
// once it imports as successful or redundant.
func New(paths []string, opts importer.ImportFileOptions, pathsToTags map[string]importer.ServiceKeysToTags, deleteAfterSuccess bool, deps Deps) *Import {
	cache := seedcache.New(seedcache.WithSink(cacheSink{deps.Events}))
	for _, p := range paths {
		cache.AddSeed(p)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	im := &Import{
		cache:              cache,
		importFileOptions:  opts,
		pathsToTags:        pathsToTags,
		deleteAfterSuccess: deleteAfterSuccess,
		fileImporter:       deps.FileImporter,
		events:             deps.Events,
		lifecycle:          deps.Lifecycle,
		log:                log,
	}
	im.regenerateStatus()
	return im
}

// cacheSink republishes seed-cache mutation events onto the shared event
// bus under the seed-cache-seed-updated topic, so UI observers don't need
// to know which importer variant owns a given cache.
type cacheSink struct{ bus importer.EventBus }

func (s cacheSink) Publish(e seedcache.Event) {
	if s.bus != nil {
		s.bus.Publish(importer.TopicSeedCacheSeedUpdated, e.Seed)
	}
}

func (im *Import) SerializableVersion() int { return serializableVersion }
func (im *Import) SerializableType() string { return serializableType }

func (im *Import) GetSeedCache() *seedcache.SeedCache { return im.cache }

func (im *Import) Pause() {
	im.mu.Lock()
	im.paused = true
	im.mu.Unlock()
}

func (im *Import) Resume() {
	im.mu.Lock()
	im.paused = false
	im.mu.Unlock()
}

func (im *Import) PausePlay() {
	im.mu.Lock()
	im.paused = !im.paused
	im.mu.Unlock()
}

func (im *Import) GetStatus() (string, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.status, im.paused
}

func (im *Import) regenerateStatus() {
	status, counts := im.cache.GetStatus()
	im.mu.Lock()
	im.status = status
	im.statusCount = counts
	im.mu.Unlock()
}

func (im *Import) isPaused() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.paused
}

// Start launches the worker goroutine. It returns immediately; the worker
// runs until ctx is canceled or lifecycle.PageDeleted(pageKey) goes true.
func (im *Import) Start(ctx context.Context, pageKey string) {
	im.regenerateStatus()
	if im.events != nil {
		im.events.Publish(importer.TopicUpdateStatus, pageKey)
	}

	go im.run(ctx, pageKey)
}

func (im *Import) run(ctx context.Context, pageKey string) {
	for {
		if ctx.Err() != nil {
			return
		}
		if im.lifecycle != nil && im.lifecycle.PageDeleted(pageKey) {
			return
		}

		if im.isPaused() {
			sleep(ctx, 100*time.Millisecond)
			continue
		}

		im.workOnFiles(ctx, pageKey)

		if im.events != nil {
			if err := im.events.WaitUntilEmpty(ctx); err != nil {
				im.log.Warn("wait until empty", zap.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// workOnFiles processes exactly one seed, matching the teacher's
// one-seed-per-tick worker shape.
func (im *Import) workOnFiles(ctx context.Context, pageKey string) {
	path, ok := im.cache.GetNextSeed(seedcache.StatusUnknown)
	if !ok {
		sleep(ctx, time.Second)
		return
	}

	tags := im.pathsToTags[path]

	status, result, err := im.fileImporter.ImportFile(ctx, path, im.importFileOptions, tags, true, "")
	if err != nil {
		im.log.Error("import file failed", zap.String("path", path), zap.Error(err))
		_ = im.cache.UpdateSeedStatus(path, seedcache.Status(importer.StatusFailed), err.Error())
	} else {
		_ = im.cache.UpdateSeedStatus(path, seedcache.Status(status), "")

		if status == importer.StatusSuccessful || status == importer.StatusRedundant {
			if im.events != nil {
				im.events.Publish(importer.TopicAddMediaResults, []importer.ImportResult{result})
			}

			if im.deleteAfterSuccess {
				if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
					im.log.Warn("delete after success failed", zap.String("path", path), zap.Error(rmErr))
				}
			}
		}
	}

	im.regenerateStatus()

	if im.events != nil {
		im.events.Publish(importer.TopicUpdateStatus, pageKey)
	}
}
