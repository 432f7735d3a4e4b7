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

// Package linux provides syscall tables for the synchronization syscalls.
package linux

import (
	"gvisor.dev/syncsc/pkg/sentry/kernel"
)

// Syscall numbers of RCore.
const (
	SysTaskInfo             = 410
	SysEnableDeadlockDetect = 469
	SysGettid               = 1000
	SysMutexCreate          = 1010
	SysMutexLock            = 1011
	SysMutexUnlock          = 1012
	SysSemaphoreCreate      = 1020
	SysSemaphoreUp          = 1021
	SysSemaphoreDown        = 1022
	SysCondvarCreate        = 1030
	SysCondvarSignal        = 1031
	SysCondvarWait          = 1032
)

// RCore is the table of synchronization and thread syscalls.
var RCore = &kernel.SyscallTable{
	Name: "rcore",
	Table: map[uintptr]kernel.Syscall{
		SysTaskInfo:             {Name: "task_info", Fn: TaskInfo},
		SysEnableDeadlockDetect: {Name: "enable_deadlock_detect", Fn: EnableDeadlockDetect},
		SysGettid:               {Name: "gettid", Fn: Gettid},
		SysMutexCreate:          {Name: "mutex_create", Fn: MutexCreate},
		SysMutexLock:            {Name: "mutex_lock", Fn: MutexLock},
		SysMutexUnlock:          {Name: "mutex_unlock", Fn: MutexUnlock},
		SysSemaphoreCreate:      {Name: "semaphore_create", Fn: SemaphoreCreate},
		SysSemaphoreUp:          {Name: "semaphore_up", Fn: SemaphoreUp},
		SysSemaphoreDown:        {Name: "semaphore_down", Fn: SemaphoreDown},
		SysCondvarCreate:        {Name: "condvar_create", Fn: CondvarCreate},
		SysCondvarSignal:        {Name: "condvar_signal", Fn: CondvarSignal},
		SysCondvarWait:          {Name: "condvar_wait", Fn: CondvarWait},
	},
}

func init() {
	kernel.RegisterSyscallTable(RCore)
}
