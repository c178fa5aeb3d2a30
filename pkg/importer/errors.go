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

package importer

import "errors"

// ErrInterrupted reports that ctx was canceled mid-iteration. The worker
// loops in this module exit on cancellation without returning it.
var ErrInterrupted = errors.New("importer: interrupted")

// PerSeedError wraps a failure that occurred while processing a single
// seed. The worker loops record any per-seed error as StatusFailed with
// the error text as the seed's note and continue with the next seed; they
// do not construct PerSeedError themselves.
type PerSeedError struct {
	Seed string
	Err  error
}

func (e *PerSeedError) Error() string {
	return "seed " + e.Seed + ": " + e.Err.Error()
}

func (e *PerSeedError) Unwrap() error { return e.Err }
