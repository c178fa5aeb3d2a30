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

// Package htmlscrape extracts candidate image URLs from a gallery page:
// images that sit inside an anchor tag ("linked" images, generally a
// thumbnail pointing at a full-size version) and images that don't
// ("unlinked" images, embedded directly).
package htmlscrape

import (
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// ImageURLs is the result of scanning one page: image URLs found behind an
// <a href> and image URLs found directly in an <img src> with no
// enclosing link, both already resolved against the page's own URL.
type ImageURLs struct {
	Linked   []string
	Unlinked []string
}

// FindImageURLs parses html (read from r, relative to pageURL) and
// extracts every linked and unlinked image URL, resolving each href/src
// against pageURL the way a browser would.
func FindImageURLs(r io.Reader, pageURL string) (ImageURLs, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ImageURLs{}, err
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ImageURLs{}, err
	}

	var out ImageURLs

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if a.Find("img").Length() == 0 {
			return
		}

		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if resolved, ok := resolve(base, href); ok {
			out.Linked = append(out.Linked, resolved)
		}
	})

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if img.ParentsFiltered("a").Length() > 0 {
			return
		}
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		if resolved, ok := resolve(base, src); ok {
			out.Unlinked = append(out.Unlinked, resolved)
		}
	})

	return out, nil
}

func resolve(base *url.URL, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
