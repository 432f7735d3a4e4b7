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

// Package kernel provides processes whose threads share mutexes, counting
// semaphores and condition variables.
//
// Every process accounts, per resource and per thread, for the units
// requested and held, and can check before a thread blocks whether granting
// the request could deadlock the process. Threads are Tasks, each driven by
// one goroutine.
//
// Lock order (outermost locks must be taken first):
//
//	Kernel.mu
//	  Process.mu
//	    ksync primitive locks
//
// Task.syscallMu is a leaf. Process.mu is never held while a Task is
// suspended inside a primitive.
package kernel

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gvisor.dev/syncsc/pkg/log"
	"gvisor.dev/syncsc/pkg/sync"
)

// Kernel creates processes and holds the settings they share.
type Kernel struct {
	// The following fields are immutable after Init.

	syscalls          *SyscallTable
	detectDeadlock    bool
	denialLogInterval time.Duration

	// mu protects the fields below.
	mu sync.Mutex

	// nextPID is the PID of the next process created.
	nextPID int32

	// processes contains every process created by NewProcess, indexed by
	// PID.
	processes map[int32]*Process
}

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// SyscallTable dispatches Task.ExecuteSyscall.
	SyscallTable *SyscallTable

	// DetectDeadlock is the initial deadlock detection flag of every new
	// process.
	DetectDeadlock bool

	// DenialLogInterval is the minimum interval between two warnings about
	// denied requests in one process. Zero logs every denial.
	DenialLogInterval time.Duration
}

// Init initializes the Kernel with no processes.
func (k *Kernel) Init(args InitKernelArgs) error {
	if args.SyscallTable == nil {
		return errors.New("SyscallTable is nil")
	}
	if args.DenialLogInterval < 0 {
		return fmt.Errorf("negative denial log interval %v", args.DenialLogInterval)
	}
	k.syscalls = args.SyscallTable
	k.detectDeadlock = args.DetectDeadlock
	k.denialLogInterval = args.DenialLogInterval
	k.processes = make(map[int32]*Process)
	return nil
}

// SyscallTable returns the table Tasks of k dispatch syscalls through.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.syscalls
}

// NewProcess creates a process without threads.
func (k *Kernel) NewProcess(name string) *Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := &Process{
		k:         k,
		pid:       k.nextPID,
		name:      name,
		denialLog: log.NewKeyedRateLimitedLogger(log.Log(), k.denialLogInterval),
	}
	if k.detectDeadlock {
		p.detect = 1
	}
	k.processes[p.pid] = p
	k.nextPID++
	log.Debugf("Created process %d (%s), deadlock detection %d", p.pid, name, p.detect)
	return p
}

// Processes returns every process of k, ordered by PID.
func (k *Kernel) Processes() []*Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	ps := make([]*Process, 0, len(k.processes))
	for _, p := range k.processes {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].pid < ps[j].pid })
	return ps
}
