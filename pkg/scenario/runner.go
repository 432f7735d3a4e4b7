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

package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gvisor.dev/syncsc/pkg/errors/syncerr"
	"gvisor.dev/syncsc/pkg/log"
	"gvisor.dev/syncsc/pkg/sentry/arch"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
	"gvisor.dev/syncsc/pkg/sentry/kernel/deadlock"
	"gvisor.dev/syncsc/pkg/sentry/syscalls/linux"
)

const (
	// DefaultStepTimeout is used when Runner.StepTimeout is zero.
	DefaultStepTimeout = 5 * time.Second

	// DefaultWaitGrace is used when Runner.WaitGrace is zero.
	DefaultWaitGrace = 50 * time.Millisecond
)

// errStuck is returned when a thread does not finish a call in time. The
// scenario cannot continue: the thread can no longer be used.
var errStuck = errors.New("thread is stuck")

// Runner replays scenarios in new processes of a Kernel.
type Runner struct {
	// Kernel creates the process of each run.
	Kernel *kernel.Kernel

	// StepTimeout bounds how long a step may take to return or to block.
	StepTimeout time.Duration

	// WaitGrace is how long a call expected to be waiting must stay
	// inside the kernel.
	WaitGrace time.Duration
}

// Result is the outcome of a run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// PID is the process the scenario ran in.
	PID int32

	// Steps holds the value returned by each step that returned, indexed
	// like Scenario.Steps. Vacate steps return 0.
	Steps []int64

	// Failures describes every unmet expectation.
	Failures []string

	// Mutexes and Semaphores are the accounting at the end of the run.
	Mutexes    deadlock.Matrix
	Semaphores deadlock.Matrix

	// Slots counts the resource slots of each kind at the end of the run,
	// vacated slots included.
	Slots map[string]int

	// Tasks summarizes every thread at the end of the run.
	Tasks []kernel.TaskInfo
}

// OK returns true if every expectation was met.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

func (r *Result) failf(format string, v ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, v...))
}

// call is a syscall handed to a thread.
type call struct {
	sysno uintptr
	args  arch.SyscallArguments
	ret   chan int64
}

// thread drives one Task on its own goroutine.
type thread struct {
	task  *kernel.Task
	calls chan call

	// pending is the call still in flight after a blocked step, if any,
	// and pendingStep its step index.
	pending     chan int64
	pendingStep int
}

func (th *thread) run() error {
	for c := range th.calls {
		c.ret <- th.task.ExecuteSyscall(c.sysno, c.args)
	}
	th.task.Exit()
	return nil
}

// issue hands a syscall to th and returns the channel its result arrives on.
func (th *thread) issue(sysno uintptr, args arch.SyscallArguments) chan int64 {
	ret := make(chan int64, 1)
	th.calls <- call{sysno: sysno, args: args, ret: ret}
	return ret
}

// Run replays sc in a new process. Unmet expectations are reported in the
// Result; an error means the run could not be carried out at all.
//
// If a thread stays stuck in a call, Run gives up and returns without
// waiting for it.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	timeout := r.StepTimeout
	if timeout == 0 {
		timeout = DefaultStepTimeout
	}

	runID := uuid.New().String()
	p := r.Kernel.NewProcess(fmt.Sprintf("%s/%s", sc.Name, runID))
	res := &Result{
		RunID: runID,
		PID:   p.PID(),
		Steps: make([]int64, len(sc.Steps)),
	}
	log.Infof("Run %s: scenario %q in process %d with %d threads", runID, sc.Name, p.PID(), sc.Threads)

	threads := make([]*thread, sc.Threads)
	for i := range threads {
		threads[i] = &thread{
			task:  p.NewTask(),
			calls: make(chan call),
		}
	}
	if err := setup(sc, threads[0].task); err != nil {
		return nil, err
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, th := range threads {
		eg.Go(th.run)
	}

	stuck := false
	for i, st := range sc.Steps {
		if err := r.step(ctx, timeout, p, threads[st.Thread], i, st, res); err != nil {
			if errors.Is(err, errStuck) {
				stuck = true
				break
			}
			return res, err
		}
	}
	if !stuck {
		for _, th := range threads {
			if err := r.settle(ctx, timeout, th, res); err != nil {
				if !errors.Is(err, errStuck) {
					return res, err
				}
				stuck = true
			}
		}
	}

	if stuck {
		collect(res, p, threads)
		log.Warningf("Run %s: abandoned with stuck threads", runID)
		return res, nil
	}

	for _, th := range threads {
		close(th.calls)
	}
	if err := eg.Wait(); err != nil {
		return res, err
	}
	collect(res, p, threads)
	log.Infof("Run %s: %d steps, %d failures", runID, len(sc.Steps), len(res.Failures))
	return res, nil
}

// collect records the final state of p in res.
func collect(res *Result, p *kernel.Process, threads []*thread) {
	res.Mutexes = p.Snapshot(kernel.MutexKind)
	res.Semaphores = p.Snapshot(kernel.SemaphoreKind)
	res.Slots = make(map[string]int)
	for _, kind := range []kernel.ResourceKind{kernel.MutexKind, kernel.SemaphoreKind, kernel.CondvarKind} {
		res.Slots[kind.String()] = p.Resources(kind)
	}
	for _, th := range threads {
		res.Tasks = append(res.Tasks, th.task.Info())
	}
	if log.IsLogging(log.Debug) {
		log.Debugf("Run %s: final mutex accounting:\n%s", res.RunID, spew.Sdump(res.Mutexes))
		log.Debugf("Run %s: final semaphore accounting:\n%s", res.RunID, spew.Sdump(res.Semaphores))
	}
}

// setup applies the detection flag and creates the declared resources on
// behalf of t.
func setup(sc *Scenario, t *kernel.Task) error {
	if sc.Detect != nil {
		flag := 0
		if *sc.Detect {
			flag = 1
		}
		if ret := t.ExecuteSyscall(linux.SysEnableDeadlockDetect, arch.Args(flag)); ret != 0 {
			return fmt.Errorf("enabling deadlock detection: %d", ret)
		}
	}
	for i, kind := range sc.Mutexes {
		blocking := 0
		if kind == MutexBlocking {
			blocking = 1
		}
		if id := t.ExecuteSyscall(linux.SysMutexCreate, arch.Args(blocking)); id != int64(i) {
			return fmt.Errorf("mutex %d created with id %d", i, id)
		}
	}
	for i, n := range sc.Semaphores {
		if id := t.ExecuteSyscall(linux.SysSemaphoreCreate, arch.Args(n)); id != int64(i) {
			return fmt.Errorf("semaphore %d created with id %d", i, id)
		}
	}
	for i := 0; i < sc.Condvars; i++ {
		if id := t.ExecuteSyscall(linux.SysCondvarCreate, arch.SyscallArguments{}); id != int64(i) {
			return fmt.Errorf("condvar %d created with id %d", i, id)
		}
	}
	return nil
}

// step runs step i on th.
func (r *Runner) step(ctx context.Context, timeout time.Duration, p *kernel.Process, th *thread, i int, st Step, res *Result) error {
	if err := r.settle(ctx, timeout, th, res); err != nil {
		return err
	}
	log.Debugf("Step %d: %v, expecting %s", i, st, st.expect())

	if st.Op == OpVacate {
		// Vacate is not a syscall; it runs here, on behalf of th.
		kind, _ := kernel.ParseResourceKind(st.Kind)
		err := p.Vacate(kind, st.ID)
		switch {
		case err != nil && st.expect() == ExpectOK:
			res.failf("step %d (%v): %v", i, st, err)
		case err == nil && st.expect() != ExpectOK:
			res.failf("step %d (%v): succeeded, want %s", i, st, st.expect())
		}
		return nil
	}

	sysno, args := st.syscall()
	ret := th.issue(sysno, args)

	if st.expect() == ExpectWaiting {
		grace := r.WaitGrace
		if grace == 0 {
			grace = DefaultWaitGrace
		}
		select {
		case v := <-ret:
			res.Steps[i] = v
			res.failf("step %d (%v): returned %d within %v, want it to keep waiting", i, st, v, grace)
		case <-time.After(grace):
			th.pending = ret
			th.pendingStep = i
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if st.expect() == ExpectBlocked {
		v, returned, err := waitBlocked(ctx, timeout, th.task, ret)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.failf("step %d (%v): neither returned nor blocked: %v", i, st, err)
			return errStuck
		case returned:
			res.Steps[i] = v
			res.failf("step %d (%v): returned %d, want it to block", i, st, v)
		default:
			th.pending = ret
			th.pendingStep = i
		}
		return nil
	}

	select {
	case v := <-ret:
		res.Steps[i] = v
		check(res, i, st, v)
		return nil
	case <-time.After(timeout):
		res.failf("step %d (%v): did not return within %v", i, st, timeout)
		return errStuck
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle waits for the pending call of th, if any, to return.
func (r *Runner) settle(ctx context.Context, timeout time.Duration, th *thread, res *Result) error {
	if th.pending == nil {
		return nil
	}
	i := th.pendingStep
	select {
	case v := <-th.pending:
		th.pending = nil
		res.Steps[i] = v
		if v < 0 {
			res.failf("step %d: blocked call returned %d", i, v)
		}
		return nil
	case <-time.After(timeout):
		res.failf("step %d: blocked call of thread %d never returned", i, th.task.Slot())
		return errStuck
	case <-ctx.Done():
		return ctx.Err()
	}
}

// check compares the value v returned by step i with its expectation.
func check(res *Result, i int, st Step, v int64) {
	var ok bool
	switch st.expect() {
	case ExpectOK:
		ok = v >= 0
	case ExpectDeadlock:
		ok = v == syncerr.DeadlockCode
	case ExpectInvalid:
		ok = v == syncerr.InvalidCode
	}
	if !ok {
		res.failf("step %d (%v): returned %d, want %s", i, st, v, st.expect())
		return
	}
	if st.Result != nil && v != *st.Result {
		res.failf("step %d (%v): returned %d, want %d", i, st, v, *st.Result)
	}
}

// waitBlocked waits until t is suspended or its call returns on ret. It
// returns the value returned, if the call returned first.
func waitBlocked(ctx context.Context, timeout time.Duration, t *kernel.Task, ret chan int64) (int64, bool, error) {
	var (
		v        int64
		returned bool
	)
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = timeout
	op := func() error {
		select {
		case v = <-ret:
			returned = true
			return nil
		default:
		}
		if s := t.State(); s != kernel.TaskGoroutineBlocked {
			return fmt.Errorf("thread %d is %v", t.Slot(), s)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return 0, false, err
	}
	return v, returned, nil
}
