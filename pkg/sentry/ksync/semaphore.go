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

package ksync

import (
	"gvisor.dev/syncsc/pkg/sync"
)

// Semaphore is a counting semaphore with a FIFO wait queue.
//
// A negative count is the number of threads waiting in Down.
type Semaphore struct {
	mu      sync.Mutex
	count   int64
	waiters waitQueue
}

// NewSemaphore returns a Semaphore with count units available.
func NewSemaphore(count int64) *Semaphore {
	return &Semaphore{count: count}
}

// Down takes one unit, suspending the caller until one is available.
func (s *Semaphore) Down(sl Sleeper) {
	s.mu.Lock()
	s.count--
	if s.count >= 0 {
		s.mu.Unlock()
		return
	}
	w := s.waiters.enqueue()
	s.mu.Unlock()

	// The unit is handed over by Up; there is nothing to retry.
	w.block(sl)
}

// Up returns one unit, waking the longest waiting thread if there is one.
func (s *Semaphore) Up() {
	s.mu.Lock()
	s.count++
	var w *Waiter
	if s.count <= 0 {
		w = s.waiters.dequeue()
	}
	s.mu.Unlock()

	if w != nil {
		w.wake()
	}
}

// Count returns the current count.
func (s *Semaphore) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
