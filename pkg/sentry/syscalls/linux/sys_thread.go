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

// Gettid implements the syscall gettid. The thread id is the caller's
// thread slot.
func Gettid(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.Slot()), nil
}

// TaskInfo handles: task_info(). It returns the number of syscalls the
// caller has executed, this one included.
func TaskInfo(t *kernel.Task, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.Info().TotalSyscalls()), nil
}
