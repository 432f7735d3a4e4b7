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
	"sync/atomic"
	"time"

	"github.com/google/btree"

	"gvisor.dev/syncsc/pkg/sync"
)

// Task represents a thread of a Process. A Task is driven by one goroutine
// at a time, which calls the synchronization methods of the Task.
type Task struct {
	p *Process

	// slot is the thread slot of the Task: its column in the accounting
	// of p. slot is immutable.
	slot int

	// created is when the Task was created. created is immutable.
	created time.Time

	// state is the TaskGoroutineState of the Task.
	state atomic.Int32

	// waitKind is the kind of primitive the Task is about to wait on. It is
	// only accessed by the task goroutine.
	waitKind ResourceKind

	// syscallMu protects syscalls.
	syscallMu sync.Mutex

	// syscalls counts the syscalls executed by the Task, ordered by
	// syscall number.
	syscalls *btree.BTreeG[SyscallCount]
}

// SyscallCount is the number of times a Task executed one syscall.
type SyscallCount struct {
	Sysno uintptr
	Count uint64
}

func newTask(p *Process, slot int) *Task {
	t := &Task{
		p:       p,
		slot:    slot,
		created: time.Now(),
		syscalls: btree.NewG(2, func(a, b SyscallCount) bool {
			return a.Sysno < b.Sysno
		}),
	}
	t.state.Store(int32(TaskGoroutineRunning))
	return t
}

// Process returns the Process containing t.
func (t *Task) Process() *Process {
	return t.p
}

// Kernel returns the Kernel containing t.
func (t *Task) Kernel() *Kernel {
	return t.p.k
}

// Slot returns the thread slot of t, which is also its thread id within its
// Process.
func (t *Task) Slot() int {
	return t.slot
}

// countSyscall records one execution of sysno by t.
func (t *Task) countSyscall(sysno uintptr) {
	t.syscallMu.Lock()
	defer t.syscallMu.Unlock()
	c, _ := t.syscalls.Get(SyscallCount{Sysno: sysno})
	c.Sysno = sysno
	c.Count++
	t.syscalls.ReplaceOrInsert(c)
}

// TaskInfo is a summary of a Task.
type TaskInfo struct {
	// Status is the state of the task goroutine.
	Status TaskGoroutineState

	// Syscalls lists every syscall executed by the Task, ordered by syscall
	// number.
	Syscalls []SyscallCount

	// Elapsed is the time since the Task was created.
	Elapsed time.Duration
}

// TotalSyscalls returns the number of syscalls executed.
func (ti TaskInfo) TotalSyscalls() uint64 {
	var n uint64
	for _, c := range ti.Syscalls {
		n += c.Count
	}
	return n
}

// Info returns a TaskInfo for t.
func (t *Task) Info() TaskInfo {
	ti := TaskInfo{
		Status:  t.State(),
		Elapsed: time.Since(t.created),
	}
	t.syscallMu.Lock()
	defer t.syscallMu.Unlock()
	ti.Syscalls = make([]SyscallCount, 0, t.syscalls.Len())
	t.syscalls.Ascend(func(c SyscallCount) bool {
		ti.Syscalls = append(ti.Syscalls, c)
		return true
	})
	return ti
}
