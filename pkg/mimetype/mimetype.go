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

// Package mimetype implements the default importer.MimeDetector: MIME type
// sniffing of a local file based on well-known "magic" number prefixes,
// falling back to net/http's content sniffer and finally the file
// extension.
package mimetype

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type prefixEntry struct {
	offset int
	prefix []byte
	mtype  string
}

// usable source: http://www.garykessler.net/library/file_sigs.html
// mime types: http://www.iana.org/assignments/media-types/media-types.xhtml
//
// Table contents and matching strategy adapted from the file(1) magic
// database (see http://darwinsys.com/file/, version 5.19), reduced here to
// the image/video/audio formats Allowed-Mimes filtering actually needs.
var prefixTable = []prefixEntry{
	{0, []byte("GIF87a"), "image/gif"},
	{0, []byte("GIF89a"), "image/gif"},
	{0, []byte("\xff\xd8\xff\xe2"), "image/jpeg"},
	{0, []byte("\xff\xd8\xff\xe1"), "image/jpeg"},
	{0, []byte("\xff\xd8\xff\xe0"), "image/jpeg"},
	{0, []byte("\xff\xd8\xff\xdb"), "image/jpeg"},
	{0, []byte{137, 'P', 'N', 'G', '\r', '\n', 26, 10}, "image/png"},
	{0, []byte{0x49, 0x49, 0x2A, 0}, "image/tiff"},
	{0, []byte{0x4D, 0x4D, 0, 0x2A}, "image/tiff"},
	{0, []byte("8BPS"), "image/vnd.adobe.photoshop"},
	{0, []byte("fLaC\x00\x00\x00"), "audio/x-flac"},
	{0, []byte{'I', 'D', '3'}, "audio/mpeg"},
	{0, []byte{0x1A, 0x45, 0xDF, 0xA3}, "video/webm"},
	{0, []byte{'P', 'K', 3, 4}, "application/zip"},
	{0, []byte("%PDF"), "application/pdf"},
	{4, []byte("moov"), "video/quicktime"},
	{4, []byte("mdat"), "video/quicktime"},
	{8, []byte("isom"), "video/mp4"},
	{8, []byte("mp41"), "video/mp4"},
	{8, []byte("mp42"), "video/mp4"},
	{0, []byte("OggS"), "application/ogg"},
	{8, []byte("WAVE"), "audio/x-wav"},
	{8, []byte("AVI\040"), "video/x-msvideo"},
}

// MIMEType returns the sniffed MIME type of the data in hdr, the empty
// string if it can't be determined from the magic table or net/http's
// generic sniffer.
func MIMEType(hdr []byte) string {
	hlen := len(hdr)
	for _, pte := range prefixTable {
		plen := pte.offset + len(pte.prefix)
		if hlen > plen && bytes.Equal(hdr[pte.offset:plen], pte.prefix) {
			return pte.mtype
		}
	}
	t := http.DetectContentType(hdr)
	t = strings.Replace(t, "; charset=utf-8", "", 1)
	if t != "application/octet-stream" && t != "text/plain" {
		return t
	}
	return ""
}

// Detector is the default importer.MimeDetector: it reads a file's header
// bytes and sniffs the type, falling back to the extension when sniffing
// comes up empty (e.g. plain text).
type Detector struct{}

// GetMime implements importer.MimeDetector.
func (Detector) GetMime(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var hdr [1024]byte
	n, err := io.ReadFull(f, hdr[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	if t := MIMEType(hdr[:n]); t != "" {
		return t, nil
	}
	return MIMETypeByExtension(filepath.Ext(path)), nil
}

// MIMETypeByExtension calls mime.TypeByExtension and strips any trailing
// parameters, keeping only the type and subtype.
func MIMETypeByExtension(ext string) string {
	parts := strings.SplitN(mime.TypeByExtension(ext), ";", 2)
	return strings.TrimSpace(parts[0])
}
