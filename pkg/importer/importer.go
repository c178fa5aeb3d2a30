/*
Copyright 2013 The Camlistore Authors
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

	"github.com/Stonedestroyer/hydrus/pkg/seedcache"
)

// Importer is the capability interface shared by every importer variant
// (HDD, Import Folder, Page-of-Images, Thread-Watcher). The worker body
// differs per variant; this shape is what the outer UI/CLI/owning page
// drives.
type Importer interface {
	// Start launches the one background worker this importer owns. It
	// runs until ctx is canceled or the owning page key is reported
	// deleted by the PageLifecycle collaborator. Start must not block;
	// it returns once the worker goroutine has been spawned.
	Start(ctx context.Context, pageKey string)

	// Pause, Resume and PausePlay toggle worker activity without
	// terminating it. They are safe to call before Start or after the
	// worker has stopped; they just won't have an observable effect
	// until/unless the worker runs again.
	Pause()
	Resume()
	PausePlay()

	// GetStatus returns a human-readable summary line alongside whether
	// the importer is currently paused.
	GetStatus() (string, bool)

	// GetSeedCache returns the single Seed Cache this importer owns.
	GetSeedCache() *seedcache.SeedCache
}

// Snapshot is implemented by every serializable entity in the core (the
// Seed Cache and each importer variant), mirroring
// HydrusSerialisable.SerialisableBase: a version integer plus a type
// identifier used by the registry to reconstruct the right Go type.
type Snapshot interface {
	SerializableVersion() int
	SerializableType() string
}
