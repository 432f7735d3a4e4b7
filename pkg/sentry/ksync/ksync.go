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

// Package ksync provides the blocking primitives that a process's threads
// synchronize with: mutexes (spinning and blocking), counting semaphores and
// condition variables.
//
// Primitives never account for who holds what; that is the kernel's job.
// They only suspend and wake threads. A thread is suspended by waiting on
// the channel of its Waiter, and every suspension is bracketed by calls to
// the thread's Sleeper so that the scheduler side can observe it.
package ksync

import (
	"github.com/gammazero/deque"
)

// Sleeper must be implemented by users of the blocking primitives so that
// suspensions can be accounted for.
type Sleeper interface {
	// SleepStart is called immediately before the calling thread suspends.
	SleepStart()

	// SleepFinish is called once the calling thread has been woken.
	SleepFinish()
}

// NoopSleeper is a stateless no-op implementation of Sleeper for callers
// that do not track suspensions.
type NoopSleeper struct{}

// SleepStart implements Sleeper.SleepStart.
func (NoopSleeper) SleepStart() {}

// SleepFinish implements Sleeper.SleepFinish.
func (NoopSleeper) SleepFinish() {}

// Waiter is the struct which gets enqueued into a primitive's wait queue.
// Once a Waiter has been enqueued, its owner listens on C for the wake up.
type Waiter struct {
	// C is sent to when the Waiter is woken.
	C chan struct{}
}

// NewWaiter returns a new unqueued Waiter.
func NewWaiter() *Waiter {
	return &Waiter{
		C: make(chan struct{}, 1),
	}
}

// wake notifies w. It never blocks: C has room for exactly one wake up and a
// waiter is dequeued, and so woken, at most once.
func (w *Waiter) wake() {
	select {
	case w.C <- struct{}{}:
	default:
	}
}

// block suspends the caller until w is woken.
func (w *Waiter) block(s Sleeper) {
	s.SleepStart()
	<-w.C
	s.SleepFinish()
}

// waitQueue is a FIFO of waiters. It is not synchronized; every primitive
// protects its queue with its own lock.
type waitQueue struct {
	waiters deque.Deque[*Waiter]
}

func (q *waitQueue) enqueue() *Waiter {
	w := NewWaiter()
	q.waiters.PushBack(w)
	return w
}

// dequeue removes the oldest waiter, or returns nil if the queue is empty.
func (q *waitQueue) dequeue() *Waiter {
	if q.waiters.Len() == 0 {
		return nil
	}
	return q.waiters.PopFront()
}

func (q *waitQueue) len() int {
	return q.waiters.Len()
}
