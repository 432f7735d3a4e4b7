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
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// recordingSleeper counts suspensions and reports each one on started.
type recordingSleeper struct {
	sleeping atomic.Int32
	sleeps   atomic.Int32
	started  chan struct{}
}

func newRecordingSleeper() *recordingSleeper {
	return &recordingSleeper{started: make(chan struct{}, 16)}
}

func (r *recordingSleeper) SleepStart() {
	r.sleeping.Add(1)
	r.sleeps.Add(1)
	r.started <- struct{}{}
}

func (r *recordingSleeper) SleepFinish() {
	r.sleeping.Add(-1)
}

// waitSleep waits until r has been suspended once more.
func (r *recordingSleeper) waitSleep(t *testing.T) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("thread never suspended")
	}
}

func TestMutexExclusion(t *testing.T) {
	for _, tc := range []struct {
		name string
		m    Mutex
	}{
		{name: "spin", m: &SpinMutex{}},
		{name: "blocking", m: NewBlockingMutex()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			const (
				goroutines = 8
				iterations = 500
			)
			var (
				inside  atomic.Int32
				counter int
				eg      errgroup.Group
			)
			for i := 0; i < goroutines; i++ {
				eg.Go(func() error {
					for j := 0; j < iterations; j++ {
						tc.m.Lock(NoopSleeper{})
						if n := inside.Add(1); n != 1 {
							t.Errorf("%d threads inside the critical section", n)
						}
						counter++
						inside.Add(-1)
						tc.m.Unlock()
					}
					return nil
				})
			}
			eg.Wait()
			if want := goroutines * iterations; counter != want {
				t.Errorf("counter = %d, want %d", counter, want)
			}
		})
	}
}

func TestTryLock(t *testing.T) {
	for _, m := range []Mutex{&SpinMutex{}, NewBlockingMutex()} {
		if !m.TryLock() {
			t.Fatalf("%T: TryLock on a free mutex failed", m)
		}
		if m.TryLock() {
			t.Errorf("%T: TryLock on a held mutex succeeded", m)
		}
		m.Unlock()
		if !m.TryLock() {
			t.Errorf("%T: TryLock after Unlock failed", m)
		}
		m.Unlock()
	}
}

func TestBlockingMutexSuspends(t *testing.T) {
	m := NewBlockingMutex()
	m.Lock(NoopSleeper{})

	s := newRecordingSleeper()
	done := make(chan struct{})
	go func() {
		m.Lock(s)
		close(done)
	}()

	s.waitSleep(t)
	select {
	case <-done:
		t.Fatalf("Lock returned while the mutex was held")
	default:
	}

	m.Unlock()
	<-done
	if n := s.sleeping.Load(); n != 0 {
		t.Errorf("sleeper still marked sleeping (%d) after Lock returned", n)
	}
	m.Unlock()
}

func TestSemaphoreCounting(t *testing.T) {
	s := NewSemaphore(2)
	s.Down(NoopSleeper{})
	s.Down(NoopSleeper{})
	if got := s.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}

	r := newRecordingSleeper()
	done := make(chan struct{})
	go func() {
		s.Down(r)
		close(done)
	}()
	r.waitSleep(t)
	if got := s.Count(); got != -1 {
		t.Errorf("Count() with one waiter = %d, want -1", got)
	}

	s.Up()
	<-done
	if got := s.Count(); got != 0 {
		t.Errorf("Count() after handoff = %d, want 0", got)
	}
}

func TestSemaphoreFIFO(t *testing.T) {
	s := NewSemaphore(0)
	const waiters = 4
	order := make(chan int, waiters)
	for i := 0; i < waiters; i++ {
		r := newRecordingSleeper()
		go func() {
			s.Down(r)
			order <- i
		}()
		// Let each waiter queue up before starting the next one.
		r.waitSleep(t)
	}
	for i := 0; i < waiters; i++ {
		s.Up()
		if got := <-order; got != i {
			t.Errorf("wake %d went to waiter %d", i, got)
		}
	}
}

func TestCondvarReleasesMutex(t *testing.T) {
	m := NewBlockingMutex()
	c := NewCondvar()
	r := newRecordingSleeper()

	m.Lock(NoopSleeper{})
	done := make(chan struct{})
	go func() {
		c.Wait(r, m)
		// Wait returns with m held again.
		if m.TryLock() {
			t.Errorf("mutex free after Wait returned")
		}
		m.Unlock()
		close(done)
	}()

	r.waitSleep(t)
	// The waiter released m before suspending.
	if !m.TryLock() {
		t.Fatalf("mutex still held while the waiter sleeps")
	}
	if got := c.Waiters(); got != 1 {
		t.Errorf("Waiters() = %d, want 1", got)
	}
	m.Unlock()

	if !c.Signal() {
		t.Errorf("Signal() found no waiter")
	}
	<-done
}

func TestCondvarSignalWithoutWaiterIsLost(t *testing.T) {
	c := NewCondvar()
	if c.Signal() {
		t.Errorf("Signal() woke a waiter on an empty condvar")
	}

	m := NewBlockingMutex()
	r := newRecordingSleeper()
	m.Lock(NoopSleeper{})
	done := make(chan struct{})
	go func() {
		c.Wait(r, m)
		m.Unlock()
		close(done)
	}()
	r.waitSleep(t)
	select {
	case <-done:
		t.Fatalf("Wait consumed an earlier signal")
	case <-time.After(10 * time.Millisecond):
	}
	c.Signal()
	<-done
}
