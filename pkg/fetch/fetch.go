/*
Copyright 2011 Google Inc.
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

// Package fetch implements the default HTTPFetcher and TempFiles
// collaborators: a polite (rate-limited) HTTP client that streams response
// bodies to scratch files under the cache directory, handing the caller a
// path to import from.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/Stonedestroyer/hydrus/pkg/importer"
	"github.com/Stonedestroyer/hydrus/pkg/osutil"
)

// Client is the default importer.HTTPFetcher and importer.TempFiles
// implementation. A single Client is meant to be shared by every remote
// importer (Page-of-Images, Thread-Watcher) so their requests share one
// politeness budget.
type Client struct {
	HTTP      *http.Client
	Limiter   *rate.Limiter
	UserAgent string

	// TempDir overrides where scratch files are created; empty means
	// osutil.CacheDir().
	TempDir string
}

// New returns a Client rate-limited to requestsPerSecond sustained
// requests, with a burst of one (the spec's "polite wait" has no notion of
// bursting ahead).
func New(requestsPerSecond float64, userAgent string) *Client {
	return &Client{
		HTTP:      http.DefaultClient,
		Limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		UserAgent: userAgent,
	}
}

var _ importer.HTTPFetcher = (*Client)(nil)
var _ importer.TempFiles = (*Client)(nil)

// GetTempPath hands out a scratch file under the cache directory, along
// with a cleanup func that removes it.
func (c *Client) GetTempPath() (string, func(), error) {
	dir := c.TempDir
	if dir == "" {
		dir = osutil.CacheDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp(dir, "fetch-*.tmp")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	f.Close()

	return path, func() { os.Remove(path) }, nil
}

// DoHTTP performs a polite HTTP request: it waits on the shared limiter
// before dialing, then either buffers the body (opts.TempPath empty) or
// streams it to disk, invoking opts.Progress as bytes arrive.
func (c *Client) DoHTTP(ctx context.Context, method, url string, opts importer.FetchOptions) (importer.FetchResult, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return importer.FetchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return importer.FetchResult{}, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return importer.FetchResult{}, err
	}

	if opts.TempPath == "" {
		return importer.FetchResult{Body: resp.Body, StatusCode: resp.StatusCode}, nil
	}
	defer resp.Body.Close()

	if err := streamToFile(resp.Body, opts.TempPath, resp.ContentLength, opts.Progress); err != nil {
		return importer.FetchResult{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	return importer.FetchResult{StatusCode: resp.StatusCode}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func streamToFile(body io.Reader, path string, total int64, progress func(done, total int64)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := io.Writer(f)
	if progress != nil {
		w = &progressWriter{w: f, total: total, onWrite: progress}
	}

	_, err = io.Copy(w, body)
	return err
}

// progressWriter reports cumulative bytes written after each chunk.
type progressWriter struct {
	w       io.Writer
	done    int64
	total   int64
	onWrite func(done, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.done += int64(n)
	p.onWrite(p.done, p.total)
	return n, err
}
