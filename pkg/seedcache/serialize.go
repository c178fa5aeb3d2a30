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

package seedcache

import (
	"encoding/json"
	"time"
)

// SerializableVersion and SerializableType implement pkg/importer.Snapshot.
// A SeedCache is not entered in the importer registry (pkg/importer imports
// this package); it is round-tripped as part of its owning importer's state.
const (
	serializableVersion = 1
	serializableType    = "seed_cache"
)

func (c *SeedCache) SerializableVersion() int { return serializableVersion }
func (c *SeedCache) SerializableType() string { return serializableType }

// wireEntry is one (seed, info) pair as written to the wire. Plain structs
// rather than a map keep insertion order explicit in the JSON array, the
// way HydrusSerialisable's seed cache round-trips its ordered pair list.
type wireEntry struct {
	Seed                  Seed      `json:"seed"`
	Status                Status    `json:"status"`
	AddedTimestamp        time.Time `json:"added_timestamp"`
	LastModifiedTimestamp time.Time `json:"last_modified_timestamp"`
	Note                  string    `json:"note,omitempty"`
}

// MarshalJSON writes the cache as an ordered array of entries, preserving
// insertion order on the wire the way the in-memory ordered slice does.
func (c *SeedCache) MarshalJSON() ([]byte, error) {
	c.mu.Lock()
	entries := make([]wireEntry, 0, len(c.ordered))
	for _, s := range c.ordered {
		info := c.info[s]
		entries = append(entries, wireEntry{
			Seed:                  s,
			Status:                info.Status,
			AddedTimestamp:        info.AddedTimestamp,
			LastModifiedTimestamp: info.LastModifiedTimestamp,
			Note:                  info.Note,
		})
	}
	c.mu.Unlock()
	return json.Marshal(entries)
}

// UnmarshalJSON replaces the cache's contents with the decoded ordered
// entries. It is meant to be called against a freshly constructed
// SeedCache (e.g. via New followed by json.Unmarshal), not against one
// already serving a worker loop.
func (c *SeedCache) UnmarshalJSON(data []byte) error {
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	c.mu.Lock()
	c.ordered = make([]Seed, 0, len(entries))
	c.info = make(map[Seed]Info, len(entries))
	for _, e := range entries {
		c.ordered = append(c.ordered, e.Seed)
		c.info[e.Seed] = Info{
			Status:                e.Status,
			AddedTimestamp:        e.AddedTimestamp,
			LastModifiedTimestamp: e.LastModifiedTimestamp,
			Note:                  e.Note,
		}
	}
	c.mu.Unlock()
	return nil
}
