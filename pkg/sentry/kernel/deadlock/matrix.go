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

// Package deadlock holds the per-process accounting tables of one lockable
// resource kind and the safety check run over them before a thread is
// allowed to block.
//
// Nothing in this package synchronizes. Callers own a Matrix exclusively,
// in practice under their process's critical section.
package deadlock

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// Matrix is the request/allocation/remain accounting of every resource of
// one kind. Rows are indexed by resource id and columns by thread slot.
//
// Cells are plain counters. An unbalanced release drives a cell negative
// and is accepted silently.
type Matrix struct {
	// Request[r][t] counts the outstanding lock or down calls of thread t
	// on resource r that have not yet been matched by a release.
	Request [][]int64 `toml:"request" yaml:"request"`

	// Allocation[r][t] is the number of units of r held by thread t.
	Allocation [][]int64 `toml:"allocation" yaml:"allocation"`

	// Remain[r] is the number of units of r held by nobody.
	Remain []int64 `toml:"remain" yaml:"remain"`
}

// Len returns the number of resource rows.
func (m *Matrix) Len() int {
	return len(m.Remain)
}

// Grow extends every row with zero cells until it has at least threads
// columns. Rows are never shrunk.
func (m *Matrix) Grow(threads int) {
	for r := range m.Remain {
		m.Request[r] = growRow(m.Request[r], threads)
		m.Allocation[r] = growRow(m.Allocation[r], threads)
	}
}

func growRow(row []int64, threads int) []int64 {
	for len(row) < threads {
		row = append(row, 0)
	}
	return row
}

// AppendRow adds the row of a new resource with capacity units available and
// returns its id.
func (m *Matrix) AppendRow(threads int, capacity int64) int {
	m.Request = append(m.Request, make([]int64, threads))
	m.Allocation = append(m.Allocation, make([]int64, threads))
	m.Remain = append(m.Remain, capacity)
	return len(m.Remain) - 1
}

// ResetRow reinitializes the row of a reused resource id.
//
// Only the columns below min(previous row length, threads) are zeroed;
// zero columns are then appended up to threads. Columns at or past threads
// in a row that was already longer keep their old values.
func (m *Matrix) ResetRow(id, threads int, capacity int64) {
	if id < 0 || id >= m.Len() {
		panic(fmt.Sprintf("deadlock: reset of resource %d out of range [0, %d)", id, m.Len()))
	}
	m.Request[id] = resetRow(m.Request[id], threads)
	m.Allocation[id] = resetRow(m.Allocation[id], threads)
	m.Remain[id] = capacity
}

func resetRow(row []int64, threads int) []int64 {
	n := min(len(row), threads)
	clear(row[:n])
	return growRow(row, threads)
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() Matrix {
	return deepcopy.Copy(*m).(Matrix)
}

// Validate checks that m is well formed for threads columns: the three
// tables describe the same resources and every row covers every thread.
func (m *Matrix) Validate(threads int) error {
	if len(m.Request) != len(m.Remain) || len(m.Allocation) != len(m.Remain) {
		return fmt.Errorf("table sizes disagree: %d request rows, %d allocation rows, %d remain entries", len(m.Request), len(m.Allocation), len(m.Remain))
	}
	for r := range m.Remain {
		if len(m.Request[r]) < threads {
			return fmt.Errorf("request row %d has %d columns, want at least %d", r, len(m.Request[r]), threads)
		}
		if len(m.Allocation[r]) < threads {
			return fmt.Errorf("allocation row %d has %d columns, want at least %d", r, len(m.Allocation[r]), threads)
		}
	}
	return nil
}
