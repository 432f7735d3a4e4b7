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
	"sync/atomic"

	"gvisor.dev/syncsc/pkg/sync"
)

// Mutex is the contract shared by the spinning and the blocking mutex.
type Mutex interface {
	// Lock acquires the mutex on behalf of the thread represented by s,
	// waiting as long as necessary.
	Lock(s Sleeper)

	// TryLock acquires the mutex if it is free and reports whether it did.
	TryLock() bool

	// Unlock releases the mutex. It does not check that the caller holds
	// it.
	Unlock()
}

// SpinMutex is a mutex that busy-waits. A thread waiting for a SpinMutex is
// never suspended, so its Sleeper is never notified.
//
// The zero value is an unlocked mutex.
type SpinMutex struct {
	locked atomic.Bool
}

// Lock implements Mutex.Lock.
func (m *SpinMutex) Lock(Sleeper) {
	for !m.TryLock() {
		sync.Goyield()
	}
}

// TryLock implements Mutex.TryLock.
func (m *SpinMutex) TryLock() bool {
	return m.locked.CompareAndSwap(false, true)
}

// Unlock implements Mutex.Unlock.
func (m *SpinMutex) Unlock() {
	m.locked.Store(false)
}

// BlockingMutex is a mutex whose contended waiters are suspended until the
// holder releases it.
//
// v is 1 when the mutex is free, 0 when it is held without waiters and
// negative when it is held and contended; a contended release wakes one
// waiter through ch, which then competes for the mutex again.
type BlockingMutex struct {
	v  atomic.Int32
	ch chan struct{}
}

// NewBlockingMutex returns an unlocked BlockingMutex.
func NewBlockingMutex() *BlockingMutex {
	m := &BlockingMutex{ch: make(chan struct{}, 1)}
	m.v.Store(1)
	return m
}

// Lock implements Mutex.Lock.
func (m *BlockingMutex) Lock(s Sleeper) {
	// Uncontended case.
	if m.v.Add(-1) == 0 {
		return
	}

	for {
		// Try to acquire the mutex again, at the same time making sure
		// that m.v is negative, which indicates to the owner of the
		// lock that it is contended, which will force it to try to wake
		// someone up when it releases the mutex.
		if v := m.v.Load(); v >= 0 && m.v.Swap(-1) == 1 {
			return
		}

		// Wait for the mutex to be released before trying again.
		s.SleepStart()
		<-m.ch
		s.SleepFinish()
	}
}

// TryLock implements Mutex.TryLock.
func (m *BlockingMutex) TryLock() bool {
	if m.v.Load() <= 0 {
		return false
	}
	return m.v.CompareAndSwap(1, 0)
}

// Unlock implements Mutex.Unlock.
func (m *BlockingMutex) Unlock() {
	if m.v.Swap(1) == 0 {
		// There were no pending waiters.
		return
	}

	// Wake some waiter up.
	select {
	case m.ch <- struct{}{}:
	default:
	}
}
