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

// Package foldwatch gives the Import Folder worker an early wake-up
// signal: a filesystem watch on the folder's root that supplements — it
// never replaces — the fixed polling period, so a file dropped into a
// watched directory can be picked up well before the next scheduled tick.
package foldwatch

import (
	"go.uber.org/zap"

	"github.com/fsnotify/fsnotify"
)

// Watcher supplies a channel that receives a value whenever the watched
// directory changes. If the underlying OS watch can't be established
// (missing permissions, too many inotify watches, an unsupported
// platform), Watch degrades gracefully: it logs a warning and returns a
// Watcher whose channel never fires, leaving the caller to rely on pure
// polling.
type Watcher struct {
	wake chan struct{}
	w    *fsnotify.Watcher
}

// Watch begins watching dir. Call Close when done.
func Watch(dir string, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("foldwatch: creating fsnotify watcher failed, falling back to pure polling", zap.Error(err))
		return &Watcher{wake: make(chan struct{})}
	}

	if err := fw.Add(dir); err != nil {
		log.Warn("foldwatch: watching directory failed, falling back to pure polling", zap.String("dir", dir), zap.Error(err))
		fw.Close()
		return &Watcher{wake: make(chan struct{})}
	}

	w := &Watcher{wake: make(chan struct{}, 1), w: fw}
	go w.pump(log)
	return w
}

func (w *Watcher) pump(log *zap.Logger) {
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			log.Warn("foldwatch: watch error", zap.Error(err))
		}
	}
}

// Chan returns the early-wake channel. A receive on it means the folder
// changed since the last receive; the channel is never closed.
func (w *Watcher) Chan() <-chan struct{} { return w.wake }

// Close releases the underlying OS watch, if one was established.
func (w *Watcher) Close() error {
	if w.w == nil {
		return nil
	}
	return w.w.Close()
}
