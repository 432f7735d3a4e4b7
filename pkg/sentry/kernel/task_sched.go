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
)

// TaskGoroutineState is a coarse representation of the current execution
// state of a task goroutine.
type TaskGoroutineState int32

const (
	// TaskGoroutineRunning indicates that the task goroutine is running,
	// or runnable. This is the state of a new Task.
	TaskGoroutineRunning TaskGoroutineState = iota

	// TaskGoroutineBlocked indicates that the task goroutine is suspended
	// inside a blocking primitive.
	TaskGoroutineBlocked

	// TaskGoroutineExited indicates that the task goroutine has exited. A
	// Task never leaves this state.
	TaskGoroutineExited
)

// String implements fmt.Stringer.String.
func (s TaskGoroutineState) String() string {
	switch s {
	case TaskGoroutineRunning:
		return "running"
	case TaskGoroutineBlocked:
		return "blocked"
	case TaskGoroutineExited:
		return "exited"
	default:
		return fmt.Sprintf("TaskGoroutineState(%d)", int32(s))
	}
}

// State returns the current state of the task goroutine of t.
func (t *Task) State() TaskGoroutineState {
	return TaskGoroutineState(t.state.Load())
}

// SleepStart implements ksync.Sleeper.SleepStart.
func (t *Task) SleepStart() {
	t.transition(TaskGoroutineRunning, TaskGoroutineBlocked)
	blockingWaits.Increment(t.waitKind.String())
}

// SleepFinish implements ksync.Sleeper.SleepFinish.
func (t *Task) SleepFinish() {
	t.transition(TaskGoroutineBlocked, TaskGoroutineRunning)
	// A woken condvar waiter sleeps next, if at all, to reacquire its mutex.
	if t.waitKind == CondvarKind {
		t.waitKind = MutexKind
	}
}

// Exit marks the task goroutine of t as exited. The thread slot of t stays
// allocated.
func (t *Task) Exit() {
	t.state.Store(int32(TaskGoroutineExited))
	t.Infof("Exited after %d syscalls", t.Info().TotalSyscalls())
}

func (t *Task) transition(from, to TaskGoroutineState) {
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		panic(fmt.Sprintf("Task goroutine switching from state %v (expected %v) to %v", t.State(), from, to))
	}
}
