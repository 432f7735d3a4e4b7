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
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff"

	"gvisor.dev/syncsc/pkg/errors/syncerr"
	"gvisor.dev/syncsc/pkg/sentry/arch"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
)

func newTasks(t *testing.T, detect bool, n int) []*kernel.Task {
	t.Helper()
	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{SyscallTable: RCore, DetectDeadlock: detect}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p := k.NewProcess(t.Name())
	tasks := make([]*kernel.Task, n)
	for i := range tasks {
		tasks[i] = p.NewTask()
	}
	return tasks
}

func TestRCoreRegistered(t *testing.T) {
	s, ok := kernel.LookupSyscallTable("rcore")
	if !ok || s != RCore {
		t.Fatalf("rcore table not registered")
	}
	for _, no := range RCore.Numbers() {
		sc := RCore.Table[no]
		if sc.Name == "" || sc.Fn == nil {
			t.Errorf("syscall %d is incomplete: %+v", no, sc)
		}
	}
	if got := len(RCore.Table); got != 12 {
		t.Errorf("RCore has %d syscalls, want 12", got)
	}
}

func TestThreadSyscalls(t *testing.T) {
	tasks := newTasks(t, false, 3)
	for i, task := range tasks {
		if got := task.ExecuteSyscall(SysGettid, arch.SyscallArguments{}); got != int64(i) {
			t.Errorf("gettid = %d, want %d", got, i)
		}
	}
	task := tasks[2]
	task.ExecuteSyscall(SysMutexCreate, arch.Args(1))
	// gettid, mutex_create and task_info itself.
	if got := task.ExecuteSyscall(SysTaskInfo, arch.SyscallArguments{}); got != 3 {
		t.Errorf("task_info = %d, want 3", got)
	}
	if got := task.ExecuteSyscall(7, arch.SyscallArguments{}); got != syncerr.NoSysCode {
		t.Errorf("unknown syscall = %d, want %d", got, syncerr.NoSysCode)
	}
}

func TestCreateSyscalls(t *testing.T) {
	task := newTasks(t, false, 1)[0]
	for _, tc := range []struct {
		sysno uintptr
		args  arch.SyscallArguments
		want  []int64
	}{
		{sysno: SysMutexCreate, args: arch.Args(0), want: []int64{0, 1, 2}},
		{sysno: SysSemaphoreCreate, args: arch.Args(3), want: []int64{0, 1}},
		{sysno: SysCondvarCreate, want: []int64{0}},
	} {
		for _, want := range tc.want {
			if got := task.ExecuteSyscall(tc.sysno, tc.args); got != want {
				t.Errorf("%s = %d, want %d", RCore.LookupName(tc.sysno), got, want)
			}
		}
	}
	if got := task.Process().Snapshot(kernel.SemaphoreKind).Remain; len(got) != 2 || got[0] != 3 {
		t.Errorf("semaphore remain = %v, want [3 3]", got)
	}
}

func TestEnableDeadlockDetectSyscall(t *testing.T) {
	task := newTasks(t, false, 1)[0]
	for _, tc := range []struct {
		flag int
		want int64
	}{
		{flag: 1, want: 0},
		{flag: 2, want: syncerr.InvalidCode},
		{flag: 0, want: 0},
	} {
		if got := task.ExecuteSyscall(SysEnableDeadlockDetect, arch.Args(tc.flag)); got != tc.want {
			t.Errorf("enable_deadlock_detect(%d) = %d, want %d", tc.flag, got, tc.want)
		}
	}
	if got := task.Process().DeadlockDetection(); got != 0 {
		t.Errorf("detection flag = %d, want 0", got)
	}
}

func waitBlocked(t *testing.T, task *kernel.Task) {
	t.Helper()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	err := backoff.Retry(func() error {
		if s := task.State(); s != kernel.TaskGoroutineBlocked {
			return fmt.Errorf("task is %v", s)
		}
		return nil
	}, b)
	if err != nil {
		t.Fatalf("task never blocked: %v", err)
	}
}

func TestDeadlockSyscalls(t *testing.T) {
	tasks := newTasks(t, false, 2)
	a, b := tasks[0], tasks[1]
	if got := a.ExecuteSyscall(SysEnableDeadlockDetect, arch.Args(1)); got != 0 {
		t.Fatalf("enable_deadlock_detect = %d", got)
	}
	m0 := a.ExecuteSyscall(SysMutexCreate, arch.Args(1))
	m1 := a.ExecuteSyscall(SysMutexCreate, arch.Args(1))

	if got := a.ExecuteSyscall(SysMutexLock, arch.Args(int(m0))); got != 0 {
		t.Fatalf("a mutex_lock(M0) = %d", got)
	}
	if got := b.ExecuteSyscall(SysMutexLock, arch.Args(int(m1))); got != 0 {
		t.Fatalf("b mutex_lock(M1) = %d", got)
	}
	done := make(chan int64, 1)
	go func() {
		done <- a.ExecuteSyscall(SysMutexLock, arch.Args(int(m1)))
	}()
	waitBlocked(t, a)

	if got := b.ExecuteSyscall(SysMutexLock, arch.Args(int(m0))); got != syncerr.DeadlockCode {
		t.Errorf("b mutex_lock(M0) = %d, want %d", got, syncerr.DeadlockCode)
	}
	if got := b.ExecuteSyscall(SysMutexUnlock, arch.Args(int(m1))); got != 0 {
		t.Errorf("b mutex_unlock(M1) = %d", got)
	}
	select {
	case got := <-done:
		if got != 0 {
			t.Errorf("a mutex_lock(M1) = %d, want 0", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("a mutex_lock(M1) never returned")
	}
}

func TestCondvarSyscalls(t *testing.T) {
	tasks := newTasks(t, false, 2)
	a, b := tasks[0], tasks[1]
	m := a.ExecuteSyscall(SysMutexCreate, arch.Args(1))
	c := a.ExecuteSyscall(SysCondvarCreate, arch.SyscallArguments{})

	a.ExecuteSyscall(SysMutexLock, arch.Args(int(m)))
	done := make(chan int64, 1)
	go func() {
		done <- a.ExecuteSyscall(SysCondvarWait, arch.Args(int(c), int(m)))
	}()
	waitBlocked(t, a)

	if got := b.ExecuteSyscall(SysMutexLock, arch.Args(int(m))); got != 0 {
		t.Fatalf("b mutex_lock = %d", got)
	}
	b.ExecuteSyscall(SysMutexUnlock, arch.Args(int(m)))
	if got := b.ExecuteSyscall(SysCondvarSignal, arch.Args(int(c))); got != 0 {
		t.Errorf("condvar_signal = %d", got)
	}
	select {
	case got := <-done:
		if got != 0 {
			t.Errorf("condvar_wait = %d, want 0", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("condvar_wait never returned")
	}
}
