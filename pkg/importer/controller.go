/*
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

package importer

import (
	"context"
	"io"
)

// Hash identifies an ingested file by content hash. Its internal shape is a
// collaborator concern (the backing database decides); the core only ever
// compares hashes for equality and threads them through.
type Hash string

// ImportResult is the collaborator-produced record identifying an ingested
// file — the "media result" of the spec's glossary. Its fields beyond Hash
// are opaque to the core; callers that need more attach it to their own
// payloads.
type ImportResult struct {
	Hash Hash
	Path string
	URL  string
}

// ImportFileOptions bundles the shared import-file settings (size/type
// filters, post-processing switches, …) that the backing database
// interprets. The core never inspects its contents.
type ImportFileOptions struct {
	Data map[string]any
}

// ServiceKeysToTags maps a tag-service key to the tags to apply on import.
type ServiceKeysToTags map[string][]string

// ServiceKeysToContentUpdates maps a tag-service key to a batch of content
// updates (e.g. "apply these tags to this existing hash").
type ServiceKeysToContentUpdates map[string][]ContentUpdate

// ContentUpdate is a single tag-service mutation against an existing hash.
type ContentUpdate struct {
	Hash Hash
	Tags []string
}

// FileImporter is the collaborator that hashes, stores, and records a local
// file in the backing database. It is the single entry point used by every
// importer variant to actually commit a seed.
type FileImporter interface {
	// ImportFile ingests the file at path. url is the empty string for
	// locally-sourced seeds (HDD, Import Folder) and the originating URL
	// for remotely-fetched ones (Page-of-Images, Thread-Watcher).
	// wantMediaResult mirrors generate_media_result in the spec: when
	// false, callers only need the resulting hash.
	ImportFile(ctx context.Context, path string, opts ImportFileOptions, tags ServiceKeysToTags, wantMediaResult bool, url string) (Status, ImportResult, error)
}

// URLChecker answers whether a file URL has already been imported, for the
// dedup-before-download step of the remote importers.
type URLChecker interface {
	URLStatus(ctx context.Context, url string) (Status, Hash, error)
}

// MD5Checker is URLChecker's content-hash counterpart, used by the
// Thread-Watcher importer which learns an MD5 before it ever fetches bytes.
type MD5Checker interface {
	MD5Status(ctx context.Context, md5 [16]byte) (Status, Hash, error)
}

// MediaResultStore looks up previously-imported records by hash.
type MediaResultStore interface {
	MediaResults(ctx context.Context, serviceKey string, hashes []Hash) ([]ImportResult, error)
}

// ContentUpdater attaches tags to an already-imported hash (used when a
// Thread-Watcher seed turns out to be redundant but still carries an
// implied filename tag worth recording).
type ContentUpdater interface {
	ContentUpdates(ctx context.Context, updates ServiceKeysToContentUpdates) error
}

// FolderSnapshot is the persisted configuration of an Import Folder, passed
// to FolderRecorder.ImportFolder after each tick.
type FolderSnapshot struct {
	Name   string
	Path   string
	Config []byte // opaque JSON, owned by the folder importer
}

// FolderRecorder persists an Import Folder's configuration.
type FolderRecorder interface {
	ImportFolder(ctx context.Context, snapshot FolderSnapshot) error
}

// FetchOptions configures a single HTTPFetcher.DoHTTP call.
type FetchOptions struct {
	// TempPath, when non-empty, streams the response body to this path
	// instead of buffering it in memory.
	TempPath string

	// Progress, if non-nil, is invoked periodically with bytes
	// downloaded and (if known) the total content length.
	Progress func(done, total int64)
}

// FetchResult is the outcome of an HTTPFetcher.DoHTTP call.
type FetchResult struct {
	// Body is non-nil only when FetchOptions.TempPath was empty; the
	// caller owns closing it.
	Body io.ReadCloser

	// StatusCode is the HTTP response status.
	StatusCode int
}

// HTTPFetcher performs the actual GET requests issued by the remote
// importers, with progress reporting into a destination temp file.
type HTTPFetcher interface {
	DoHTTP(ctx context.Context, method, url string, opts FetchOptions) (FetchResult, error)
}

// MimeDetector sniffs the MIME type of a local file.
type MimeDetector interface {
	GetMime(path string) (string, error)
}

// ThreadURLResolver turns a user-facing thread URL into the JSON API
// endpoint to poll and the base URL file attachments hang off of.
type ThreadURLResolver interface {
	ThreadURLs(threadURL string) (jsonURL, fileBase string, err error)
}

// PathExpander resolves a set of raw directory-listing entries into a
// recursive set of concrete file paths (the collaborator behind
// GetAllPaths).
type PathExpander interface {
	GetAllPaths(raw []string) ([]string, error)
}

// EventBus is the typed replacement for the string-topic pub/sub the
// original spec describes (see design notes §9). WaitUntilEmpty is the
// backpressure primitive each worker loop calls between iterations.
type EventBus interface {
	Publish(topic Topic, payload any)
	WaitUntilEmpty(ctx context.Context) error
}

// PageLifecycle answers whether the UI page (or equivalent owning surface)
// that started an importer has since been torn down — one of the two
// cooperative-cancellation signals a worker loop checks every iteration.
type PageLifecycle interface {
	PageDeleted(pageKey string) bool
}

// TempFiles hands out a scoped temporary file path plus its cleanup.
type TempFiles interface {
	GetTempPath() (path string, cleanup func(), err error)
}
