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

// Package collab supplies two flavors of every collaborator interface in
// pkg/importer: Fake, an in-memory fixture for tests, and a set of
// Default* production-shape adapters over the concrete packages (fetch,
// mimetype) that actually implement non-database concerns.
package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

// Fake is an in-memory stand-in for the entire Controller façade: a single
// hash registry keyed by content, addressable by URL or MD5, that every
// importer test can wire up without a real backing database.
type Fake struct {
	mu sync.Mutex

	byURL    map[string]importer.Hash
	byMD5    map[[16]byte]importer.Hash
	results  map[importer.Hash]importer.ImportResult
	tags     map[importer.Hash]importer.ServiceKeysToTags
	deleted  map[string]bool
	nextHash int

	ImportErr error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		byURL:   make(map[string]importer.Hash),
		byMD5:   make(map[[16]byte]importer.Hash),
		results: make(map[importer.Hash]importer.ImportResult),
		tags:    make(map[importer.Hash]importer.ServiceKeysToTags),
		deleted: make(map[string]bool),
	}
}

// SeedKnownURL registers url as already-imported, for tests exercising the
// URLChecker/MediaResultStore redundant path.
func (f *Fake) SeedKnownURL(url string, hash importer.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byURL[url] = hash
	f.results[hash] = importer.ImportResult{Hash: hash, URL: url}
}

// SeedKnownMD5 registers md5 as already-imported, for the thread-watcher's
// dedup-before-download path.
func (f *Fake) SeedKnownMD5(md5 [16]byte, hash importer.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byMD5[md5] = hash
	f.results[hash] = importer.ImportResult{Hash: hash}
}

// MarkPageDeleted makes PageDeleted(pageKey) report true from now on.
func (f *Fake) MarkPageDeleted(pageKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[pageKey] = true
}

func (f *Fake) ImportFile(ctx context.Context, path string, opts importer.ImportFileOptions, tags importer.ServiceKeysToTags, wantMediaResult bool, url string) (importer.Status, importer.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ImportErr != nil {
		return "", importer.ImportResult{}, f.ImportErr
	}

	f.nextHash++
	hash := importer.Hash(fmt.Sprintf("fakehash-%d", f.nextHash))
	result := importer.ImportResult{Hash: hash, Path: path, URL: url}
	f.results[hash] = result
	if len(tags) > 0 {
		f.tags[hash] = tags
	}
	if url != "" {
		f.byURL[url] = hash
	}
	return importer.StatusSuccessful, result, nil
}

func (f *Fake) URLStatus(ctx context.Context, url string) (importer.Status, importer.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hash, ok := f.byURL[url]; ok {
		return importer.StatusRedundant, hash, nil
	}
	return importer.StatusNew, "", nil
}

func (f *Fake) MD5Status(ctx context.Context, md5 [16]byte) (importer.Status, importer.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hash, ok := f.byMD5[md5]; ok {
		return importer.StatusRedundant, hash, nil
	}
	return importer.StatusNew, "", nil
}

func (f *Fake) MediaResults(ctx context.Context, serviceKey string, hashes []importer.Hash) ([]importer.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]importer.ImportResult, 0, len(hashes))
	for _, h := range hashes {
		if r, ok := f.results[h]; ok {
			out = append(out, r)
		} else {
			out = append(out, importer.ImportResult{Hash: h})
		}
	}
	return out, nil
}

func (f *Fake) ContentUpdates(ctx context.Context, updates importer.ServiceKeysToContentUpdates) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, batch := range updates {
		for _, upd := range batch {
			f.tags[upd.Hash] = importer.ServiceKeysToTags{"local_tags": upd.Tags}
		}
	}
	return nil
}

func (f *Fake) ImportFolder(ctx context.Context, snapshot importer.FolderSnapshot) error {
	return nil
}

func (f *Fake) ThreadURLs(threadURL string) (string, string, error) {
	return threadURL + "/json", threadURL + "/files/", nil
}

func (f *Fake) Publish(topic importer.Topic, payload any) {}

func (f *Fake) WaitUntilEmpty(ctx context.Context) error { return nil }

func (f *Fake) PageDeleted(pageKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[pageKey]
}

func (f *Fake) Tags(hash importer.Hash) importer.ServiceKeysToTags {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[hash]
}
