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

// Package pageimages implements the page-of-images importer: a queue of
// gallery page URLs, each scraped for linked/unlinked image URLs which
// feed a second Seed Cache of file URLs to actually download.
package pageimages

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Stonedestroyer/hydrus/pkg/htmlscrape"
	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/seedcache"
)

const (
	serializableVersion = 1
	serializableType    = "page_of_images_import"
)

func init() {
	importer.Register(serializableType, func() importer.Snapshot { return &Import{} })
}

// Deps bundles Import's collaborators.
type Deps struct {
	FileImporter importer.FileImporter
	URLs         importer.URLChecker
	MediaResults importer.MediaResultStore
	HTTP         importer.HTTPFetcher
	Temp         importer.TempFiles
	Events       importer.EventBus
	Lifecycle    importer.PageLifecycle
	Logger       *zap.Logger
	PoliteWait   time.Duration // sleep after any network request; default 5s
}

// Import is the page-of-images importer: a FIFO of gallery page URLs
// (pendingPageURLs) plus a Seed Cache of discovered file URLs.
type Import struct {
	mu sync.Mutex

	pendingPageURLs     []string
	cache               *seedcache.SeedCache
	importFileOptions   importer.ImportFileOptions
	downloadImageLinks  bool
	downloadUnlinked    bool
	paused              bool
	parserStatus        string

	deps Deps
	log  *zap.Logger
}

// New constructs an empty page-of-images import. downloadImageLinks and
// downloadUnlinkedImages mirror the spec's two independent scrape toggles.
func New(opts importer.ImportFileOptions, downloadImageLinks, downloadUnlinkedImages bool, deps Deps) *Import {
	if deps.PoliteWait == 0 {
		deps.PoliteWait = 5 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Import{
		cache:              seedcache.New(seedcache.WithSink(cacheSink{deps.Events})),
		importFileOptions:  opts,
		downloadImageLinks: downloadImageLinks,
		downloadUnlinked:   downloadUnlinkedImages,
		deps:               deps,
		log:                log,
	}
}

type cacheSink struct{ bus importer.EventBus }

func (s cacheSink) Publish(e seedcache.Event) {
	if s.bus != nil {
		s.bus.Publish(importer.TopicSeedCacheSeedUpdated, e.Seed)
	}
}

func (im *Import) SerializableVersion() int { return serializableVersion }
func (im *Import) SerializableType() string { return serializableType }

func (im *Import) GetSeedCache() *seedcache.SeedCache { return im.cache }

// PendPageURL appends a gallery page URL to the work queue.
func (im *Import) PendPageURL(pageURL string) {
	im.mu.Lock()
	im.pendingPageURLs = append(im.pendingPageURLs, pageURL)
	im.mu.Unlock()
}

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
	status, _ := im.cache.GetStatus()
	if im.parserStatus != "" {
		return im.parserStatus + "; " + status, im.paused
	}
	return status, im.paused
}

func (im *Import) isPaused() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.paused
}

func (im *Import) setParserStatus(s string) {
	im.mu.Lock()
	im.parserStatus = s
	im.mu.Unlock()
}

// Start launches the worker goroutine.
func (im *Import) Start(ctx context.Context, pageKey string) {
	go im.run(ctx, pageKey)
}

func (im *Import) run(ctx context.Context, pageKey string) {
	for {
		if ctx.Err() != nil {
			return
		}
		if im.deps.Lifecycle != nil && im.deps.Lifecycle.PageDeleted(pageKey) {
			return
		}

		if im.isPaused() {
			sleep(ctx, 100*time.Millisecond)
			continue
		}

		im.workOnQueue(ctx, pageKey)
		im.workOnFiles(ctx, pageKey)

		sleep(ctx, time.Second)

		if im.deps.Events != nil {
			if err := im.deps.Events.WaitUntilEmpty(ctx); err != nil {
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

// workOnQueue scrapes exactly one pending gallery page, adding any newly
// discovered file URLs to the cache. It defers entirely to workOnFiles
// whenever the cache still has unworked file URLs — matching the
// teacher's "don't fetch another page while files are still queued" order.
func (im *Import) workOnQueue(ctx context.Context, pageKey string) {
	if _, ok := im.cache.GetNextSeed(seedcache.StatusUnknown); ok {
		return
	}

	im.mu.Lock()
	if len(im.pendingPageURLs) == 0 {
		im.mu.Unlock()
		im.setParserStatus("")
		return
	}
	pageURL := im.pendingPageURLs[0]
	im.pendingPageURLs = im.pendingPageURLs[1:]
	im.mu.Unlock()

	im.setParserStatus("checking " + pageURL)
	if im.deps.Events != nil {
		im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
	}

	result, err := im.deps.HTTP.DoHTTP(ctx, http.MethodGet, pageURL, importer.FetchOptions{})
	defer sleep(ctx, im.deps.PoliteWait)

	if err != nil {
		im.setParserStatus(err.Error())
		sleep(ctx, 5*time.Second)
		return
	}
	defer result.Body.Close()

	if result.StatusCode == http.StatusNotFound {
		im.setParserStatus("page 404")
		sleep(ctx, 5*time.Second)
		return
	}

	found, err := htmlscrape.FindImageURLs(result.Body, pageURL)
	if err != nil {
		im.setParserStatus(err.Error())
		sleep(ctx, 5*time.Second)
		return
	}

	var candidates []string
	if im.downloadImageLinks {
		candidates = append(candidates, found.Linked...)
	}
	if im.downloadUnlinked {
		candidates = append(candidates, found.Unlinked...)
	}

	numNew := 0
	for _, fileURL := range candidates {
		if !im.cache.HasSeed(fileURL) {
			im.cache.AddSeed(fileURL)
			numNew++
		}
	}

	im.setParserStatus("page checked OK - " + strconv.Itoa(numNew) + " new files")
}

// workOnFiles downloads and imports exactly one queued file URL.
func (im *Import) workOnFiles(ctx context.Context, pageKey string) {
	fileURL, ok := im.cache.GetNextSeed(seedcache.StatusUnknown)
	if !ok {
		return
	}

	status, result, err := im.fetchAndImport(ctx, fileURL)
	if err != nil {
		im.log.Warn("page-of-images file import failed", zap.String("url", fileURL), zap.Error(err))
		_ = im.cache.UpdateSeedStatus(fileURL, seedcache.Status(importer.StatusFailed), err.Error())
	} else {
		_ = im.cache.UpdateSeedStatus(fileURL, seedcache.Status(status), "")
		if status == importer.StatusSuccessful || status == importer.StatusRedundant {
			if im.deps.Events != nil {
				im.deps.Events.Publish(importer.TopicAddMediaResults, []importer.ImportResult{result})
			}
		}
	}

	if im.deps.Events != nil {
		im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
	}

	sleep(ctx, im.deps.PoliteWait)
}

func (im *Import) fetchAndImport(ctx context.Context, fileURL string) (importer.Status, importer.ImportResult, error) {
	status, hash, err := im.deps.URLs.URLStatus(ctx, fileURL)
	if err != nil {
		return "", importer.ImportResult{}, err
	}

	if status == importer.StatusRedundant {
		results, err := im.deps.MediaResults.MediaResults(ctx, "local", []importer.Hash{hash})
		if err != nil || len(results) == 0 {
			return importer.StatusRedundant, importer.ImportResult{Hash: hash, URL: fileURL}, err
		}
		return importer.StatusRedundant, results[0], nil
	}

	tempPath, cleanup, err := im.deps.Temp.GetTempPath()
	if err != nil {
		return "", importer.ImportResult{}, err
	}
	defer cleanup()

	if _, err := im.deps.HTTP.DoHTTP(ctx, http.MethodGet, fileURL, importer.FetchOptions{TempPath: tempPath}); err != nil {
		return "", importer.ImportResult{}, err
	}

	return im.deps.FileImporter.ImportFile(ctx, tempPath, im.importFileOptions, nil, true, fileURL)
}
