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

package threadwatcher

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
)

// wireFileInfo is one url->(md5, filename) entry, written as an array
// sorted by URL so the output is deterministic instead of following Go's
// randomized map order.
type wireFileInfo struct {
	URL      string `json:"url"`
	MD5      string `json:"md5_base64"`
	Filename string `json:"filename"`
}

type wireImport struct {
	ThreadURL      string                    `json:"thread_url"`
	SeedCache      json.RawMessage           `json:"seed_cache"`
	Files          []wireFileInfo            `json:"files"`
	ImportFileOpts importer.ImportFileOptions `json:"import_file_options"`
	Tags           []string                  `json:"tags"`
	TimesToCheck   int                       `json:"times_to_check"`
	CheckPeriodSec float64                   `json:"check_period_seconds"`
	LastChecked    time.Time                 `json:"last_time_checked"`
	Paused         bool                      `json:"paused"`
}

// MarshalJSON serializes the importer's full state: thread URL, seed
// cache, the url->md5/filename side table, tag/import options, and the
// polling schedule.
func (im *Import) MarshalJSON() ([]byte, error) {
	im.mu.Lock()
	cacheJSON, err := im.cache.MarshalJSON()
	if err != nil {
		im.mu.Unlock()
		return nil, err
	}
	files := make([]wireFileInfo, 0, len(im.urlsToFiles))
	for url, info := range im.urlsToFiles {
		files = append(files, wireFileInfo{
			URL:      url,
			MD5:      base64.StdEncoding.EncodeToString(info.md5[:]),
			Filename: info.filename,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].URL < files[j].URL })
	w := wireImport{
		ThreadURL:      im.threadURL,
		SeedCache:      cacheJSON,
		Files:          files,
		ImportFileOpts: im.importFileOpts,
		Tags:           im.tags,
		TimesToCheck:   im.timesToCheck,
		CheckPeriodSec: im.checkPeriod.Seconds(),
		LastChecked:    im.lastChecked,
		Paused:         im.paused,
	}
	im.mu.Unlock()
	return json.Marshal(w)
}

// UnmarshalJSON restores a previously marshaled importer. Meant to be
// called against a freshly constructed Import, not one already serving a
// worker loop.
func (im *Import) UnmarshalJSON(data []byte) error {
	var w wireImport
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	files := make(map[string]fileInfo, len(w.Files))
	for _, f := range w.Files {
		raw, err := base64.StdEncoding.DecodeString(f.MD5)
		if err != nil || len(raw) != 16 {
			continue
		}
		var md5 [16]byte
		copy(md5[:], raw)
		files[f.URL] = fileInfo{md5: md5, filename: f.Filename}
	}

	im.mu.Lock()
	im.threadURL = w.ThreadURL
	im.urlsToFiles = files
	im.importFileOpts = w.ImportFileOpts
	im.tags = w.Tags
	im.timesToCheck = w.TimesToCheck
	im.checkPeriod = time.Duration(w.CheckPeriodSec * float64(time.Second))
	im.lastChecked = w.LastChecked
	im.paused = w.Paused
	im.mu.Unlock()

	if len(w.SeedCache) > 0 {
		return im.cache.UnmarshalJSON(w.SeedCache)
	}
	return nil
}
