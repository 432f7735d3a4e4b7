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
	"fmt"

	"gvisor.dev/syncsc/pkg/log"
	"gvisor.dev/syncsc/pkg/sentry/kernel/deadlock"
	"gvisor.dev/syncsc/pkg/sentry/ksync"
	"gvisor.dev/syncsc/pkg/sync"
)

// Process is a group of Tasks sharing synchronization resources.
//
// A resource id is an index into the slot list of its kind. Ids are stable
// once assigned; an empty (nil) slot is reused by the next create of that
// kind. Using an id that was never returned by a create, or whose slot was
// vacated, panics.
type Process struct {
	k    *Kernel
	pid  int32
	name string

	// denialLog warns about denied requests, rate limited per resource kind.
	denialLog *log.KeyedRateLimitedLogger

	// mu is the process-wide critical section. It protects every field
	// below, and is released around every call that may suspend the
	// calling Task.
	mu sync.Mutex

	// tasks are the threads of the process. A Task's thread slot is its
	// index in tasks. Exited Tasks keep their slot.
	tasks []*Task

	mutexes    []ksync.Mutex
	semaphores []*ksync.Semaphore
	condvars   []*ksync.Condvar

	// mutexAcct and semaphoreAcct hold one row per slot of mutexes and
	// semaphores respectively, vacated slots included.
	mutexAcct     deadlock.Matrix
	semaphoreAcct deadlock.Matrix

	// detect is the deadlock detection flag. Requests are checked only
	// while it is 1.
	detect int32
}

// PID returns the process id of p within its Kernel.
func (p *Process) PID() int32 {
	return p.pid
}

// Name returns the name p was created with.
func (p *Process) Name() string {
	return p.name
}

// Kernel returns the Kernel containing p.
func (p *Process) Kernel() *Kernel {
	return p.k
}

// NewTask adds a thread to p. It takes the next free thread slot.
func (p *Process) NewTask() *Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := newTask(p, len(p.tasks))
	p.tasks = append(p.tasks, t)
	return t
}

// Tasks returns the threads of p, ordered by thread slot.
func (p *Process) Tasks() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Task(nil), p.tasks...)
}

// ThreadCount returns the number of thread slots of p.
func (p *Process) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// DeadlockDetection returns the deadlock detection flag of p.
func (p *Process) DeadlockDetection() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detect
}

// Resources returns the number of slots of the given kind, vacated slots
// included.
func (p *Process) Resources(kind ResourceKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case MutexKind:
		return len(p.mutexes)
	case SemaphoreKind:
		return len(p.semaphores)
	case CondvarKind:
		return len(p.condvars)
	default:
		panic(fmt.Sprintf("unknown resource kind %v", kind))
	}
}

// Vacate empties slot id of the given kind so that the next create of that
// kind reuses it. The accounting row of the slot is left as is. Threads
// still using the resource keep their reference to it.
func (p *Process) Vacate(kind ResourceKind, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	switch kind {
	case MutexKind:
		n = len(p.mutexes)
	case SemaphoreKind:
		n = len(p.semaphores)
	case CondvarKind:
		n = len(p.condvars)
	default:
		return fmt.Errorf("unknown resource kind %v", kind)
	}
	if id < 0 || id >= n {
		return fmt.Errorf("no %v with id %d, process %d has %d", kind, id, p.pid, n)
	}
	switch kind {
	case MutexKind:
		p.mutexes[id] = nil
	case SemaphoreKind:
		p.semaphores[id] = nil
	case CondvarKind:
		p.condvars[id] = nil
	}
	log.Debugf("Process %d vacated %v %d", p.pid, kind, id)
	return nil
}

// Snapshot returns a copy of the accounting of the given kind. Condition
// variables have no accounting and yield an empty Matrix.
func (p *Process) Snapshot(kind ResourceKind) deadlock.Matrix {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == CondvarKind {
		return deadlock.Matrix{}
	}
	return p.accounting(kind).Clone()
}

// accounting returns the matrix of a lockable kind.
//
// Preconditions: p.mu is locked.
func (p *Process) accounting(kind ResourceKind) *deadlock.Matrix {
	switch kind {
	case MutexKind:
		return &p.mutexAcct
	case SemaphoreKind:
		return &p.semaphoreAcct
	default:
		panic(fmt.Sprintf("%v has no accounting", kind))
	}
}

// unlockedFor runs fn with p.mu released, and locks p.mu again when fn
// returns or panics.
//
// Preconditions: p.mu is locked.
func (p *Process) unlockedFor(fn func()) {
	p.mu.Unlock()
	defer p.mu.Lock()
	fn()
}

// mutex returns the mutex with the given id.
//
// Preconditions: p.mu is locked.
func (p *Process) mutex(id int) ksync.Mutex {
	m := p.mutexes[id]
	if m == nil {
		panic(fmt.Sprintf("process %d: mutex %d is vacated", p.pid, id))
	}
	return m
}

// semaphore returns the semaphore with the given id.
//
// Preconditions: p.mu is locked.
func (p *Process) semaphore(id int) *ksync.Semaphore {
	s := p.semaphores[id]
	if s == nil {
		panic(fmt.Sprintf("process %d: semaphore %d is vacated", p.pid, id))
	}
	return s
}

// condvar returns the condition variable with the given id.
//
// Preconditions: p.mu is locked.
func (p *Process) condvar(id int) *ksync.Condvar {
	c := p.condvars[id]
	if c == nil {
		panic(fmt.Sprintf("process %d: condvar %d is vacated", p.pid, id))
	}
	return c
}
