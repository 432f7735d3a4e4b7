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

// Package scenario describes scripted workloads for the threads of one
// process and replays them through the synchronization syscalls.
//
// A scenario declares its threads and initial resources, then lists steps.
// Each step has one thread issue one operation and states the expected
// outcome. Scenarios are read from TOML or YAML files.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"gvisor.dev/syncsc/pkg/sentry/arch"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
	"gvisor.dev/syncsc/pkg/sentry/syscalls/linux"
)

// Operations a step can issue.
const (
	OpLock            = "lock"
	OpUnlock          = "unlock"
	OpDown            = "down"
	OpUp              = "up"
	OpSignal          = "signal"
	OpWait            = "wait"
	OpEnable          = "enable"
	OpCreateMutex     = "create-mutex"
	OpCreateSemaphore = "create-semaphore"
	OpCreateCondvar   = "create-condvar"
	OpVacate          = "vacate"
)

// Expected outcomes of a step.
const (
	// ExpectOK is met by a call that returns a non-negative value.
	ExpectOK = "ok"

	// ExpectDeadlock is met by a call refused by the deadlock check.
	ExpectDeadlock = "deadlock"

	// ExpectInvalid is met by a call refused for an invalid argument.
	ExpectInvalid = "einval"

	// ExpectBlocked is met once the calling thread is suspended inside a
	// primitive. The call must then return a non-negative value before
	// the scenario ends.
	ExpectBlocked = "blocked"

	// ExpectWaiting is met by a call that has not returned after the
	// runner's grace period. The call must then return a non-negative
	// value before the scenario ends. Threads spinning on a spin mutex
	// are never suspended, so contention on one is expected with
	// ExpectWaiting rather than ExpectBlocked.
	ExpectWaiting = "waiting"
)

// Mutex kinds of Scenario.Mutexes.
const (
	MutexBlocking = "blocking"
	MutexSpin     = "spin"
)

// Scenario is a workload for one process.
type Scenario struct {
	// Name is used in logs.
	Name string `toml:"name" yaml:"name"`

	// Threads is the number of threads of the process.
	Threads int `toml:"threads" yaml:"threads"`

	// Detect, if set, is the deadlock detection flag enabled by thread 0
	// before the first step. Otherwise the process keeps the default of
	// its Kernel.
	Detect *bool `toml:"detect" yaml:"detect"`

	// Mutexes lists the mutexes created before the first step, by kind.
	// They get ids 0, 1, ... in order.
	Mutexes []string `toml:"mutexes" yaml:"mutexes"`

	// Semaphores lists the counts of the semaphores created before the
	// first step.
	Semaphores []int `toml:"semaphores" yaml:"semaphores"`

	// Condvars is the number of condition variables created before the
	// first step.
	Condvars int `toml:"condvars" yaml:"condvars"`

	Steps []Step `toml:"steps" yaml:"steps"`
}

// Step is one operation of a Scenario.
type Step struct {
	// Thread is the slot of the calling thread.
	Thread int `toml:"thread" yaml:"thread"`

	// Op is the operation.
	Op string `toml:"op" yaml:"op"`

	// ID is the resource operated on. For wait it is the condition
	// variable.
	ID int `toml:"id" yaml:"id"`

	// Mutex is the mutex released while waiting, for wait.
	Mutex int `toml:"mutex" yaml:"mutex"`

	// Flag is the detection flag, for enable.
	Flag int `toml:"flag" yaml:"flag"`

	// Blocking selects a blocking mutex, for create-mutex.
	Blocking bool `toml:"blocking" yaml:"blocking"`

	// Count is the initial count, for create-semaphore.
	Count int `toml:"count" yaml:"count"`

	// Kind is the kind of the vacated slot, for vacate.
	Kind string `toml:"kind" yaml:"kind"`

	// Expect is the expected outcome. It defaults to ExpectOK.
	Expect string `toml:"expect" yaml:"expect"`

	// Result, if set, is the exact value the call must return.
	Result *int64 `toml:"result" yaml:"result"`
}

// String implements fmt.Stringer.String.
func (s Step) String() string {
	switch s.Op {
	case OpWait:
		return fmt.Sprintf("thread %d: wait(%d, %d)", s.Thread, s.ID, s.Mutex)
	case OpEnable:
		return fmt.Sprintf("thread %d: enable(%d)", s.Thread, s.Flag)
	case OpCreateMutex:
		return fmt.Sprintf("thread %d: create-mutex(%t)", s.Thread, s.Blocking)
	case OpCreateSemaphore:
		return fmt.Sprintf("thread %d: create-semaphore(%d)", s.Thread, s.Count)
	case OpCreateCondvar:
		return fmt.Sprintf("thread %d: create-condvar()", s.Thread)
	case OpVacate:
		return fmt.Sprintf("thread %d: vacate(%s, %d)", s.Thread, s.Kind, s.ID)
	default:
		return fmt.Sprintf("thread %d: %s(%d)", s.Thread, s.Op, s.ID)
	}
}

// expect returns the expected outcome with the default applied.
func (s Step) expect() string {
	if s.Expect == "" {
		return ExpectOK
	}
	return s.Expect
}

// syscall returns the syscall issued by s.
//
// Preconditions: s.Op is not OpVacate.
func (s Step) syscall() (uintptr, arch.SyscallArguments) {
	switch s.Op {
	case OpLock:
		return linux.SysMutexLock, arch.Args(s.ID)
	case OpUnlock:
		return linux.SysMutexUnlock, arch.Args(s.ID)
	case OpDown:
		return linux.SysSemaphoreDown, arch.Args(s.ID)
	case OpUp:
		return linux.SysSemaphoreUp, arch.Args(s.ID)
	case OpSignal:
		return linux.SysCondvarSignal, arch.Args(s.ID)
	case OpWait:
		return linux.SysCondvarWait, arch.Args(s.ID, s.Mutex)
	case OpEnable:
		return linux.SysEnableDeadlockDetect, arch.Args(s.Flag)
	case OpCreateMutex:
		blocking := 0
		if s.Blocking {
			blocking = 1
		}
		return linux.SysMutexCreate, arch.Args(blocking)
	case OpCreateSemaphore:
		return linux.SysSemaphoreCreate, arch.Args(s.Count)
	case OpCreateCondvar:
		return linux.SysCondvarCreate, arch.SyscallArguments{}
	default:
		panic(fmt.Sprintf("no syscall for operation %q", s.Op))
	}
}

// Validate checks that sc can be run.
func (sc *Scenario) Validate() error {
	if sc.Threads < 1 {
		return fmt.Errorf("scenario %q: need at least one thread, got %d", sc.Name, sc.Threads)
	}
	for i, m := range sc.Mutexes {
		if m != MutexBlocking && m != MutexSpin {
			return fmt.Errorf("scenario %q: mutex %d: unknown kind %q", sc.Name, i, m)
		}
	}
	for i, n := range sc.Semaphores {
		if n < 0 {
			return fmt.Errorf("scenario %q: semaphore %d: negative count %d", sc.Name, i, n)
		}
	}
	if sc.Condvars < 0 {
		return fmt.Errorf("scenario %q: negative condvar count %d", sc.Name, sc.Condvars)
	}
	mutexes := append([]string(nil), sc.Mutexes...)
	for i, st := range sc.Steps {
		if err := st.validate(sc.Threads); err != nil {
			return fmt.Errorf("scenario %q: step %d: %w", sc.Name, i, err)
		}
		if err := st.checkMutexKind(mutexes); err != nil {
			return fmt.Errorf("scenario %q: step %d: %w", sc.Name, i, err)
		}
		mutexes = st.trackMutexes(mutexes)
	}
	return nil
}

// checkMutexKind rejects a blocked expectation on a lock of a spin mutex,
// given the kinds of the mutex slots before s ("" for a vacated slot).
func (s Step) checkMutexKind(mutexes []string) error {
	if s.Op != OpLock || s.expect() != ExpectBlocked {
		return nil
	}
	if s.ID >= 0 && s.ID < len(mutexes) && mutexes[s.ID] == MutexSpin {
		return fmt.Errorf("mutex %d spins and never blocks, expect %q instead", s.ID, ExpectWaiting)
	}
	return nil
}

// trackMutexes returns the kinds of the mutex slots after s, reusing vacated
// slots the way the process does.
func (s Step) trackMutexes(mutexes []string) []string {
	switch {
	case s.Op == OpCreateMutex:
		kind := MutexSpin
		if s.Blocking {
			kind = MutexBlocking
		}
		for i, m := range mutexes {
			if m == "" {
				mutexes[i] = kind
				return mutexes
			}
		}
		return append(mutexes, kind)
	case s.Op == OpVacate && s.Kind == kernel.MutexKind.String():
		if s.ID >= 0 && s.ID < len(mutexes) {
			mutexes[s.ID] = ""
		}
	}
	return mutexes
}

func (s Step) validate(threads int) error {
	if s.Thread < 0 || s.Thread >= threads {
		return fmt.Errorf("thread %d out of range [0, %d)", s.Thread, threads)
	}
	switch s.Op {
	case OpLock, OpUnlock, OpDown, OpUp, OpSignal, OpWait, OpEnable,
		OpCreateMutex, OpCreateSemaphore, OpCreateCondvar:
	case OpVacate:
		if _, err := kernel.ParseResourceKind(s.Kind); err != nil {
			return err
		}
		if e := s.expect(); e == ExpectBlocked || e == ExpectWaiting {
			return fmt.Errorf("%s cannot wait", s.Op)
		}
	default:
		return fmt.Errorf("unknown operation %q", s.Op)
	}
	if s.Count < 0 {
		return fmt.Errorf("negative count %d", s.Count)
	}
	switch s.expect() {
	case ExpectOK, ExpectDeadlock, ExpectInvalid, ExpectBlocked, ExpectWaiting:
	default:
		return fmt.Errorf("unknown expectation %q", s.Expect)
	}
	return nil
}

// Load reads a scenario from a .toml, .yaml or .yml file and validates it.
func Load(path string) (*Scenario, error) {
	var sc Scenario
	if err := decodeFile(path, scenarioSchema, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// decodeFile checks the TOML or YAML file at path against schema, then
// decodes it into v, rejecting unknown keys.
func decodeFile(path string, schema *gojsonschema.Schema, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]any
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if err := checkSchema(path, schema, doc); err != nil {
			return err
		}
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("decoding %s: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		if err := checkSchema(path, schema, doc); err != nil {
			return err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%s: unsupported file type %q, want .toml, .yaml or .yml", path, ext)
	}
	return nil
}
