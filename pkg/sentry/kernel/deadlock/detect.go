// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package deadlock

// Safe runs the one-pass safety check over m for the first threads thread
// slots.
//
// Thread j is obstructed if, for some resource i, its outstanding need
// Request[i][j]-Allocation[i][j] exceeds Remain[i]. The state is safe if at
// least one thread is unobstructed. Threads for which skip returns true are
// never obstructed; skip may be nil.
//
// This is a single pass against the current Remain vector. An unobstructed
// thread is not assumed to finish and return what it holds, so the check
// both misses some deadlocks and reports some safe states as unsafe. With
// zero threads nothing is unobstructed and the state is unsafe.
//
// Preconditions: m.Grow(threads) has been called.
func (m *Matrix) Safe(threads int, skip func(slot int) bool) bool {
	for j := 0; j < threads; j++ {
		if !m.obstructed(j, skip) {
			return true
		}
	}
	return false
}

func (m *Matrix) obstructed(j int, skip func(slot int) bool) bool {
	if skip != nil && skip(j) {
		return false
	}
	for i := range m.Remain {
		if m.Request[i][j]-m.Allocation[i][j] > m.Remain[i] {
			return true
		}
	}
	return false
}

// SkipSemaphoreSlotZero returns the exclusion applied when checking
// semaphores: thread slot 0 is never obstructed while exactly four
// semaphore slots exist. resources counts vacated slots too.
func SkipSemaphoreSlotZero(resources int) func(slot int) bool {
	if resources != 4 {
		return nil
	}
	return func(slot int) bool {
		return slot == 0
	}
}
