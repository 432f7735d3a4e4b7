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

package linux

import (
	"gvisor.dev/syncsc/pkg/sentry/arch"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
)

// MutexCreate handles: mutex_create(bool blocking)
func MutexCreate(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.MutexCreate(args[0].Bool())), nil
}

// MutexLock handles: mutex_lock(int id)
func MutexLock(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.MutexLock(int(args[0].Int64()))
}

// MutexUnlock handles: mutex_unlock(int id)
func MutexUnlock(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.MutexUnlock(int(args[0].Int64()))
}

// SemaphoreCreate handles: semaphore_create(size_t count)
func SemaphoreCreate(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.SemaphoreCreate(int(args[0].SizeT()))), nil
}

// SemaphoreUp handles: semaphore_up(int id)
func SemaphoreUp(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.SemaphoreUp(int(args[0].Int64()))
}

// SemaphoreDown handles: semaphore_down(int id)
func SemaphoreDown(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.SemaphoreDown(int(args[0].Int64()))
}

// CondvarCreate handles: condvar_create()
func CondvarCreate(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.CondvarCreate()), nil
}

// CondvarSignal handles: condvar_signal(int id)
func CondvarSignal(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.CondvarSignal(int(args[0].Int64()))
}

// CondvarWait handles: condvar_wait(int condvar_id, int mutex_id)
func CondvarWait(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.CondvarWait(int(args[0].Int64()), int(args[1].Int64()))
}

// EnableDeadlockDetect handles: enable_deadlock_detect(int flag)
func EnableDeadlockDetect(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.EnableDeadlockDetect(int(args[0].Int64()))
}
