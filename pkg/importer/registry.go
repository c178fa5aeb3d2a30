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
	"fmt"
	"sync"
)

// Constructor builds a zero-value Snapshot of a registered type, ready to
// have JSON unmarshaled into it. Mirrors
// HydrusSerialisable.SERIALISABLE_TYPES_TO_OBJECT_TYPES and perkeep's own
// importer.Register/importer.Create registry.
type Constructor func() Snapshot

var (
	registryMu sync.Mutex
	ctors      = make(map[string]Constructor)
)

// Register adds a named snapshot constructor. It panics on duplicate
// registration, matching the teacher's Register (a programming error, not a
// runtime condition to recover from).
func Register(typeName string, fn Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := ctors[typeName]; dup {
		panic("importer: duplicate registration of type " + typeName)
	}
	ctors[typeName] = fn
}

// New constructs a zero-value Snapshot for typeName, for the caller to then
// json.Unmarshal into.
func New(typeName string) (Snapshot, error) {
	registryMu.Lock()
	fn := ctors[typeName]
	registryMu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("importer: unknown serializable type %q", typeName)
	}
	return fn(), nil
}
