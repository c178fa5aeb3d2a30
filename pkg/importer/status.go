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

// Package importer defines the shared seed status enum, the collaborator
// ("Controller façade") interfaces every importer variant depends on, and
// the small registry used to serialize/deserialize importer snapshots.
package importer

// Status is the outcome recorded against a seed once it has been worked on.
type Status string

const (
	// StatusUnknown is the initial status of a freshly added seed.
	StatusUnknown Status = "unknown"

	// StatusNew is a transient status returned by URLStatus/MD5Status
	// lookups; it is never stored against a seed.
	StatusNew Status = "new"

	StatusSuccessful        Status = "successful"
	StatusRedundant         Status = "redundant"
	StatusDeleted           Status = "deleted"
	StatusFailed            Status = "failed"
	StatusUninterestingMime Status = "uninteresting_mime"
)

// Topic names the pub/sub topics the core publishes to. Kept as named
// constants rather than bare strings per the event-bus design note.
type Topic string

const (
	TopicAddMediaResults      Topic = "add_media_results"
	TopicUpdateStatus         Topic = "update_status"
	TopicSeedCacheSeedUpdated Topic = "seed_cache_seed_updated"
	TopicMessage              Topic = "message"
	TopicDecrementTimesToCheck Topic = "decrement_times_to_check"
)

// PostImportAction is the per-status action an Import Folder applies once a
// seed reaches a terminal status.
type PostImportAction string

const (
	ActionDelete  PostImportAction = "delete"
	ActionMove    PostImportAction = "move"
	ActionIgnore  PostImportAction = "ignore"
)
