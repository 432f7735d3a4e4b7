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

// Condvar is a condition variable. Signals are not remembered: a Signal with
// no waiter is lost.
type Condvar struct {
	mu      sync.Mutex
	waiters waitQueue
}

// NewCondvar returns a Condvar without waiters.
func NewCondvar() *Condvar {
	return &Condvar{}
}

// Signal wakes the longest waiting thread, if any, and reports whether one
// was woken.
func (c *Condvar) Signal() bool {
	c.mu.Lock()
	w := c.waiters.dequeue()
	c.mu.Unlock()

	if w == nil {
		return false
	}
	w.wake()
	return true
}

// Wait releases m, suspends the caller until the next Signal and then
// reacquires m before returning.
//
// Preconditions: the caller holds m.
func (c *Condvar) Wait(s Sleeper, m Mutex) {
	// Enqueue before releasing m, so that a Signal issued by the next
	// holder of m cannot be lost.
	c.mu.Lock()
	w := c.waiters.enqueue()
	c.mu.Unlock()

	m.Unlock()
	w.block(s)
	m.Lock(s)
}

// Waiters returns the number of threads currently waiting.
func (c *Condvar) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.len()
}
