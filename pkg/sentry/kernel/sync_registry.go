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

package kernel

import (
	"gvisor.dev/syncsc/pkg/sentry/kernel/deadlock"
	"gvisor.dev/syncsc/pkg/sentry/ksync"
)

// install puts v in the first empty slot of slots, or appends it. It returns
// the updated slots, the id of v and whether an empty slot was reused.
func install[T comparable](slots []T, v T) ([]T, int, bool) {
	var empty T
	for id, s := range slots {
		if s == empty {
			slots[id] = v
			return slots, id, true
		}
	}
	id := len(slots)
	return append(slots, v), id, false
}

// initRow (re)initializes the accounting row of resource id.
func initRow(m *deadlock.Matrix, id int, reused bool, threads int, capacity int64) {
	if reused {
		m.ResetRow(id, threads, capacity)
		return
	}
	m.AppendRow(threads, capacity)
}

// Preconditions: p.mu is locked.
func (p *Process) createMutexLocked(blocking bool) int {
	var m ksync.Mutex
	if blocking {
		m = ksync.NewBlockingMutex()
	} else {
		m = &ksync.SpinMutex{}
	}
	var (
		id     int
		reused bool
	)
	p.mutexes, id, reused = install(p.mutexes, m)
	initRow(&p.mutexAcct, id, reused, len(p.tasks), 1)
	resourcesCreated.Increment(MutexKind.String())
	return id
}

// Preconditions: p.mu is locked.
func (p *Process) createSemaphoreLocked(count int) int {
	var (
		id     int
		reused bool
	)
	p.semaphores, id, reused = install(p.semaphores, ksync.NewSemaphore(int64(count)))
	initRow(&p.semaphoreAcct, id, reused, len(p.tasks), int64(count))
	resourcesCreated.Increment(SemaphoreKind.String())
	return id
}

// Preconditions: p.mu is locked.
func (p *Process) createCondvarLocked() int {
	var id int
	p.condvars, id, _ = install(p.condvars, ksync.NewCondvar())
	resourcesCreated.Increment(CondvarKind.String())
	return id
}
