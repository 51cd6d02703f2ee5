/*
Copyright 2026 Prameya LLC.

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

// Package dedup implements the processed-ID set: a run-scoped,
// mutex-protected registry of identifiers already offered to the writer,
// used to suppress same-run duplicates without a conditional-read
// against the store.
package dedup

import "sync"

// ResetFrequency names when the set is cleared.
type ResetFrequency string

const (
	PerDate    ResetFrequency = "per_date"
	PerRange   ResetFrequency = "per_range"
	PerSession ResetFrequency = "per_session"
)

// Set is a thread-safe, run-scoped collection of opaque identifiers. It
// is never a process-global singleton: callers construct one per run
// and pass it explicitly into workers.
type Set struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	freq ResetFrequency

	// memoryThresholdMB triggers a forced reset with a warning if the
	// set's approximate footprint exceeds it. Zero disables the
	// advisory check.
	memoryThresholdMB int
}

// New creates an empty processed-ID set for the given reset policy.
func New(freq ResetFrequency, memoryThresholdMB int) *Set {
	return &Set{
		ids:               make(map[string]struct{}),
		freq:              freq,
		memoryThresholdMB: memoryThresholdMB,
	}
}

// Frequency reports the configured reset policy.
func (s *Set) Frequency() ResetFrequency {
	return s.freq
}

// Contains reports whether id has already been offered to the writer in
// this run.
func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add records id as processed. It is idempotent: adding the same id
// twice has no additional effect.
func (s *Set) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// CheckAndAdd atomically checks membership and adds id if absent,
// reporting whether id was newly added (true) or already present
// (false, a duplicate). This is the primitive the writer uses to decide
// "skip" vs "offer to store" without a separate lock/unlock pair racing
// another worker between the check and the add.
func (s *Set) CheckAndAdd(id string) (added bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the current number of tracked identifiers.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Reset clears the set. This is the only operation that shrinks it; it
// is called by the runner at the boundary named by Frequency, never
// implicitly by the writer.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// approxBytesPerID is a conservative estimate of the map overhead per
// entry, used only for the advisory memory-bound check.
const approxBytesPerID = 64

// ExceedsMemoryThreshold reports whether the set's estimated footprint
// has crossed the advisory memory_threshold_mb. A zero threshold
// always reports false (the check is disabled).
func (s *Set) ExceedsMemoryThreshold() bool {
	if s.memoryThresholdMB <= 0 {
		return false
	}
	s.mu.Lock()
	n := len(s.ids)
	s.mu.Unlock()
	estimatedMB := (n * approxBytesPerID) / (1024 * 1024)
	return estimatedMB >= s.memoryThresholdMB
}
