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

// Package threadwatcher implements the thread-watcher importer: a single
// imageboard thread polled on a fixed period (with an optional early
// one-shot check) for new attachments, each deduplicated by MD5 before it is
// ever downloaded.
package threadwatcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/seedcache"
)

const (
	serializableVersion = 1
	serializableType    = "thread_watcher_import"

	// MinCheckPeriod is the floor SetCheckPeriod clamps to, and the delay
	// a CheckNow one-shot waits out before it's honored.
	MinCheckPeriod = 30 * time.Second
)

func init() {
	importer.Register(serializableType, func() importer.Snapshot { return &Import{} })
}

// Deps bundles Import's collaborators.
type Deps struct {
	FileImporter importer.FileImporter
	MD5s         importer.MD5Checker
	MediaResults importer.MediaResultStore
	ContentUpd   importer.ContentUpdater
	HTTP         importer.HTTPFetcher
	Temp         importer.TempFiles
	URLs         importer.ThreadURLResolver
	Events       importer.EventBus
	Lifecycle    importer.PageLifecycle
	Logger       *zap.Logger
	PoliteWait   time.Duration
}

type fileInfo struct {
	md5      [16]byte
	filename string
}

// Import is the thread-watcher importer.
type Import struct {
	mu sync.Mutex

	threadURL      string
	cache          *seedcache.SeedCache
	urlsToFiles    map[string]fileInfo
	importFileOpts importer.ImportFileOptions
	tags           []string

	timesToCheck   int
	checkPeriod    time.Duration
	lastChecked    time.Time
	checkNow       bool
	paused         bool
	watcherStatus  string

	deps Deps
	log  *zap.Logger
}

// New constructs a thread-watcher importer with no thread set yet.
func New(timesToCheck int, checkPeriod time.Duration, opts importer.ImportFileOptions, deps Deps) *Import {
	if deps.PoliteWait == 0 {
		deps.PoliteWait = 5 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if checkPeriod < MinCheckPeriod {
		checkPeriod = MinCheckPeriod
	}

	return &Import{
		cache:         seedcache.New(seedcache.WithSink(cacheSink{deps.Events})),
		urlsToFiles:   make(map[string]fileInfo),
		importFileOpts: opts,
		timesToCheck:  timesToCheck,
		checkPeriod:   checkPeriod,
		watcherStatus: "ready to start",
		deps:          deps,
		log:           log,
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

// SetThreadURL sets the thread being watched.
func (im *Import) SetThreadURL(threadURL string) {
	im.mu.Lock()
	im.threadURL = threadURL
	im.mu.Unlock()
}

// HasThread reports whether a thread URL has been set.
func (im *Import) HasThread() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.threadURL != ""
}

// SetCheckPeriod sets the polling period, clamped to MinCheckPeriod.
func (im *Import) SetCheckPeriod(d time.Duration) {
	im.mu.Lock()
	if d < MinCheckPeriod {
		d = MinCheckPeriod
	}
	im.checkPeriod = d
	im.mu.Unlock()
}

// SetTags sets the filename-derived tag template applied to every import
// (the spec's "filename:" prefix tag is applied by the caller's tag
// options; this importer just threads the resulting list through).
func (im *Import) SetTags(tags []string) {
	im.mu.Lock()
	im.tags = tags
	im.mu.Unlock()
}

// CheckNow schedules a one-shot check independent of the regular period.
func (im *Import) CheckNow() {
	im.mu.Lock()
	im.checkNow = true
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

func (im *Import) isPaused() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.paused
}

// Options is the snapshot returned by GetOptions.
type Options struct {
	ThreadURL      string
	ImportFileOpts importer.ImportFileOptions
	Tags           []string
	TimesToCheck   int
	CheckPeriod    time.Duration
}

// GetOptions returns the importer's current configuration.
func (im *Import) GetOptions() Options {
	im.mu.Lock()
	defer im.mu.Unlock()
	return Options{
		ThreadURL:      im.threadURL,
		ImportFileOpts: im.importFileOpts,
		Tags:           append([]string{}, im.tags...),
		TimesToCheck:   im.timesToCheck,
		CheckPeriod:    im.checkPeriod,
	}
}

// GetStatus returns the watcher status line joined with the seed-cache
// summary (when non-empty), and whether the importer is paused.
func (im *Import) GetStatus() (string, bool) {
	im.mu.Lock()
	watcherStatus := im.watcherStatus
	paused := im.paused
	im.mu.Unlock()

	cacheStatus, _ := im.cache.GetStatus()
	if cacheStatus != "" {
		return watcherStatus + "; " + cacheStatus, paused
	}
	return watcherStatus, paused
}

func (im *Import) setWatcherStatus(s string) {
	im.mu.Lock()
	im.watcherStatus = s
	im.mu.Unlock()
}

// Start launches the worker goroutine.
func (im *Import) Start(ctx context.Context, pageKey string) {
	go im.run(ctx, pageKey)
}

func (im *Import) run(ctx context.Context, pageKey string) {
	if im.deps.Events != nil {
		im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
	}

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

		if im.HasThread() {
			im.workOnThread(ctx, pageKey)
			im.workOnFiles(ctx, pageKey)
		}

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

// workOnFiles downloads and imports exactly one queued attachment URL.
func (im *Import) workOnFiles(ctx context.Context, pageKey string) {
	fileURL, ok := im.cache.GetNextSeed(seedcache.StatusUnknown)
	if !ok {
		return
	}

	im.mu.Lock()
	info, known := im.urlsToFiles[fileURL]
	tags := append([]string{}, im.tags...)
	im.mu.Unlock()
	if known {
		tags = append(tags, "filename:"+info.filename)
	}

	doWait := false
	status, result, err := im.fetchFile(ctx, fileURL, info.md5, tags, &doWait)
	if err != nil {
		im.log.Warn("thread-watcher file import failed", zap.String("url", fileURL), zap.Error(err))
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
	if doWait {
		sleep(ctx, im.deps.PoliteWait)
	}
}

func (im *Import) fetchFile(ctx context.Context, fileURL string, md5 [16]byte, tags []string, doWait *bool) (importer.Status, importer.ImportResult, error) {
	status, hash, err := im.deps.MD5s.MD5Status(ctx, md5)
	if err != nil {
		return "", importer.ImportResult{}, err
	}

	if status == importer.StatusRedundant {
		if len(tags) > 0 && im.deps.ContentUpd != nil {
			updates := importer.ServiceKeysToContentUpdates{"local_tags": {{Hash: hash, Tags: tags}}}
			if err := im.deps.ContentUpd.ContentUpdates(ctx, updates); err != nil {
				return "", importer.ImportResult{}, err
			}
		}
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

	*doWait = true
	if _, err := im.deps.HTTP.DoHTTP(ctx, http.MethodGet, fileURL, importer.FetchOptions{TempPath: tempPath}); err != nil {
		return "", importer.ImportResult{}, err
	}

	serviceTags := importer.ServiceKeysToTags{}
	if len(tags) > 0 {
		serviceTags["local_tags"] = tags
	}
	return im.deps.FileImporter.ImportFile(ctx, tempPath, im.importFileOpts, serviceTags, true, fileURL)
}

type threadPost struct {
	MD5        string       `json:"md5"`
	Tim        json.Number  `json:"tim"`
	Ext        string       `json:"ext"`
	Filename   string       `json:"filename"`
	ExtraFiles []threadPost `json:"extra_files"`
}

type threadJSON struct {
	Posts []threadPost `json:"posts"`
}

// workOnThread polls the thread when due: either the regular period has
// elapsed, or a CheckNow one-shot is pending and MinCheckPeriod has passed
// since the last check.
func (im *Import) workOnThread(ctx context.Context, pageKey string) {
	im.mu.Lock()
	checkNow := im.checkNow && time.Since(im.lastChecked) >= MinCheckPeriod
	onPeriod := im.timesToCheck > 0 && time.Since(im.lastChecked) >= im.checkPeriod
	due := checkNow || onPeriod
	threadURL := im.threadURL
	im.mu.Unlock()

	if !due {
		im.setNotDueStatus()
		if im.deps.Events != nil {
			im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
		}
		return
	}

	im.setWatcherStatus("checking thread")
	if im.deps.Events != nil {
		im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
	}

	doWait := false
	errOccurred := false
	threadGone := false
	var watcherStatus string

	jsonURL, fileBase, err := im.deps.URLs.ThreadURLs(threadURL)
	if err != nil {
		errOccurred = true
		watcherStatus = err.Error()
	} else {
		doWait = true
		result, httpErr := im.deps.HTTP.DoHTTP(ctx, http.MethodGet, jsonURL, importer.FetchOptions{})
		if httpErr != nil {
			errOccurred = true
			watcherStatus = httpErr.Error()
		} else {
			defer result.Body.Close()
			if result.StatusCode == http.StatusNotFound {
				errOccurred = true
				threadGone = true
				watcherStatus = "thread 404"
				im.zeroTimesToCheck(pageKey)
			} else {
				numNew, parseErr := im.ingestThread(result, fileBase)
				if parseErr != nil {
					errOccurred = true
					watcherStatus = parseErr.Error()
				} else {
					watcherStatus = "thread checked OK - " + strconv.Itoa(numNew) + " new files"
				}
			}
		}
	}

	im.mu.Lock()
	if im.checkNow {
		// A check_now one-shot just ran (404 or not); clear the flag
		// regardless, same as any other tick.
		im.checkNow = false
	} else if !threadGone {
		// zeroTimesToCheck already walked times_to_check down to 0 on
		// a 404, publishing one decrement per unit it abandoned; skip
		// the ordinary per-tick decrement here to avoid double-
		// counting the last unit.
		im.timesToCheck--
		if im.deps.Events != nil {
			im.deps.Events.Publish(importer.TopicDecrementTimesToCheck, pageKey)
		}
	}
	im.lastChecked = im.clockNow()
	im.watcherStatus = watcherStatus
	im.mu.Unlock()

	if im.deps.Events != nil {
		im.deps.Events.Publish(importer.TopicUpdateStatus, pageKey)
	}
	if errOccurred {
		sleep(ctx, 5*time.Second)
	}
	if doWait {
		sleep(ctx, im.deps.PoliteWait)
	}
}

// zeroTimesToCheck implements the 404 branch: every remaining scheduled
// check is abandoned in one step, publishing one decrement event per unit
// so an observer counting events sees the same total it would have seen
// from ordinary per-tick decrements. workOnThread's post-check step skips
// its own decrement on this path to avoid double-counting the last unit.
func (im *Import) zeroTimesToCheck(pageKey string) {
	im.mu.Lock()
	remaining := im.timesToCheck
	im.timesToCheck = 0
	im.mu.Unlock()

	if im.deps.Events != nil {
		for i := 0; i < remaining; i++ {
			im.deps.Events.Publish(importer.TopicDecrementTimesToCheck, pageKey)
		}
	}
}

func (im *Import) clockNow() time.Time { return time.Now() }

func (im *Import) setNotDueStatus() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.checkNow || im.timesToCheck > 0 {
		wait := im.checkPeriod
		if im.checkNow {
			wait = MinCheckPeriod
		}
		secs := int(time.Until(im.lastChecked.Add(wait)).Seconds())
		if secs < 0 {
			secs = 0
		}
		im.watcherStatus = "checking again in " + strconv.Itoa(secs) + " seconds"
	} else {
		im.watcherStatus = "checking finished"
	}
}

func (im *Import) ingestThread(result importer.FetchResult, fileBase string) (int, error) {
	var parsed threadJSON
	if err := json.NewDecoder(result.Body).Decode(&parsed); err != nil {
		return 0, err
	}

	numNew := 0
	for _, post := range parsed.Posts {
		numNew += im.ingestPost(post, fileBase)
		for _, extra := range post.ExtraFiles {
			numNew += im.ingestPost(extra, fileBase)
		}
	}
	return numNew, nil
}

func (im *Import) ingestPost(post threadPost, fileBase string) int {
	if post.MD5 == "" || post.Tim == "" {
		return 0
	}
	md5, err := decodeMD5(post.MD5)
	if err != nil {
		return 0
	}
	fileURL := fileBase + post.Tim.String() + post.Ext
	if im.cache.HasSeed(fileURL) {
		return 0
	}

	im.cache.AddSeed(fileURL)
	im.mu.Lock()
	im.urlsToFiles[fileURL] = fileInfo{md5: md5, filename: post.Filename + post.Ext}
	im.mu.Unlock()
	return 1
}

// decodeMD5 decodes a base64-encoded 16-byte MD5 digest, as the imageboard
// JSON API delivers it.
func decodeMD5(s string) ([16]byte, error) {
	var out [16]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 16 {
		return out, errors.New("threadwatcher: decoded md5 is not 16 bytes")
	}
	copy(out[:], raw)
	return out, nil
}
