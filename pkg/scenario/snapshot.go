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
	"fmt"

	"gvisor.dev/syncsc/pkg/sentry/kernel"
	"gvisor.dev/syncsc/pkg/sentry/kernel/deadlock"
)

// Snapshot is the accounting of one resource kind of a process at one
// point, as stored in a file.
type Snapshot struct {
	// Kind is "mutex" or "semaphore".
	Kind string `toml:"kind" yaml:"kind"`

	// Threads is the number of thread slots checked.
	Threads int `toml:"threads" yaml:"threads"`

	deadlock.Matrix `yaml:",inline"`
}

// LoadSnapshot reads a snapshot from a .toml, .yaml or .yml file.
func LoadSnapshot(path string) (*Snapshot, error) {
	var s Snapshot
	if err := decodeFile(path, snapshotSchema, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Safe runs the deadlock check over s, with the semaphore exclusion when
// s holds semaphores.
func (s *Snapshot) Safe() (bool, error) {
	kind, err := kernel.ParseResourceKind(s.Kind)
	if err != nil {
		return false, err
	}
	var skip func(int) bool
	switch kind {
	case kernel.MutexKind:
	case kernel.SemaphoreKind:
		skip = deadlock.SkipSemaphoreSlotZero(s.Len())
	default:
		return false, fmt.Errorf("%v has no accounting", kind)
	}
	if s.Threads < 0 {
		return false, fmt.Errorf("negative thread count %d", s.Threads)
	}
	if err := s.Validate(s.Threads); err != nil {
		return false, err
	}
	return s.Matrix.Safe(s.Threads, skip), nil
}
