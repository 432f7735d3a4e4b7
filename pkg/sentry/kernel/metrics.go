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

	"gvisor.dev/syncsc/pkg/metric"
)

// ResourceKind identifies one of the three kinds of synchronization
// resource a process can create.
type ResourceKind int

const (
	// MutexKind is a spinning or blocking mutex.
	MutexKind ResourceKind = iota

	// SemaphoreKind is a counting semaphore.
	SemaphoreKind

	// CondvarKind is a condition variable. Condition variables are not
	// accounted for.
	CondvarKind
)

// String implements fmt.Stringer.String.
func (k ResourceKind) String() string {
	switch k {
	case MutexKind:
		return "mutex"
	case SemaphoreKind:
		return "semaphore"
	case CondvarKind:
		return "condvar"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// ParseResourceKind returns the ResourceKind named s.
func ParseResourceKind(s string) (ResourceKind, error) {
	for _, k := range []ResourceKind{MutexKind, SemaphoreKind, CondvarKind} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

var (
	deadlockDenied = metric.MustCreateNewUint64Metric(
		"/sync/deadlock_denied",
		"Number of lock and down requests refused because granting them could deadlock the process.",
		metric.NewField("kind", MutexKind.String(), SemaphoreKind.String()))
	resourcesCreated = metric.MustCreateNewUint64Metric(
		"/sync/resources_created",
		"Number of synchronization resources created, including reused slots.",
		metric.NewField("kind", MutexKind.String(), SemaphoreKind.String(), CondvarKind.String()))
	blockingWaits = metric.MustCreateNewUint64Metric(
		"/sync/blocking_waits",
		"Number of times a thread was suspended inside a synchronization primitive.",
		metric.NewField("kind", MutexKind.String(), SemaphoreKind.String(), CondvarKind.String()))
)
