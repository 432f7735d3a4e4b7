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

package deadlock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendRow(t *testing.T) {
	var m Matrix
	if id := m.AppendRow(2, 1); id != 0 {
		t.Errorf("first AppendRow = %d, want 0", id)
	}
	if id := m.AppendRow(3, 5); id != 1 {
		t.Errorf("second AppendRow = %d, want 1", id)
	}
	want := Matrix{
		Request:    [][]int64{{0, 0}, {0, 0, 0}},
		Allocation: [][]int64{{0, 0}, {0, 0, 0}},
		Remain:     []int64{1, 5},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}
}

func TestGrow(t *testing.T) {
	m := Matrix{
		Request:    [][]int64{{1}, {1, 2, 3}},
		Allocation: [][]int64{{}, {4, 5, 6, 7}},
		Remain:     []int64{0, 1},
	}
	m.Grow(3)
	want := Matrix{
		Request:    [][]int64{{1, 0, 0}, {1, 2, 3}},
		Allocation: [][]int64{{0, 0, 0}, {4, 5, 6, 7}},
		Remain:     []int64{0, 1},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}

	// Growing again is a no-op.
	m.Grow(3)
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("second Grow changed the matrix (-want +got):\n%s", diff)
	}
}

func TestResetRow(t *testing.T) {
	for _, tc := range []struct {
		name    string
		row     []int64
		threads int
		want    []int64
	}{
		{
			name:    "same width",
			row:     []int64{3, 4},
			threads: 2,
			want:    []int64{0, 0},
		},
		{
			name:    "more threads than columns",
			row:     []int64{3, 4},
			threads: 4,
			want:    []int64{0, 0, 0, 0},
		},
		{
			// Columns past the current thread count are not reset.
			// Whether keeping them was intended is unknown; this pins
			// the behavior.
			name:    "stale columns past thread count",
			row:     []int64{3, 4, 5, 6},
			threads: 2,
			want:    []int64{0, 0, 5, 6},
		},
		{
			name:    "empty row",
			row:     []int64{},
			threads: 3,
			want:    []int64{0, 0, 0},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := Matrix{
				Request:    [][]int64{{9}, append([]int64(nil), tc.row...)},
				Allocation: [][]int64{{9}, append([]int64(nil), tc.row...)},
				Remain:     []int64{9, -2},
			}
			m.ResetRow(1, tc.threads, 7)
			want := Matrix{
				Request:    [][]int64{{9}, tc.want},
				Allocation: [][]int64{{9}, tc.want},
				Remain:     []int64{9, 7},
			}
			if diff := cmp.Diff(want, m); diff != "" {
				t.Errorf("matrix mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResetRowOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("ResetRow of a nonexistent row did not panic")
		}
	}()
	var m Matrix
	m.ResetRow(0, 1, 1)
}

func TestClone(t *testing.T) {
	var m Matrix
	m.AppendRow(2, 1)
	c := m.Clone()
	m.Request[0][1]++
	m.Allocation[0][0]++
	m.Remain[0]--
	want := Matrix{
		Request:    [][]int64{{0, 0}},
		Allocation: [][]int64{{0, 0}},
		Remain:     []int64{1},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("clone changed with the original (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		m       Matrix
		threads int
		ok      bool
	}{
		{
			name: "empty",
			ok:   true,
		},
		{
			name: "well formed",
			m: Matrix{
				Request:    [][]int64{{0, 1}},
				Allocation: [][]int64{{1, 0}},
				Remain:     []int64{0},
			},
			threads: 2,
			ok:      true,
		},
		{
			name: "missing allocation row",
			m: Matrix{
				Request: [][]int64{{0, 1}},
				Remain:  []int64{0},
			},
			threads: 2,
		},
		{
			name: "short request row",
			m: Matrix{
				Request:    [][]int64{{0}},
				Allocation: [][]int64{{1, 0}},
				Remain:     []int64{0},
			},
			threads: 2,
		},
		{
			name: "short allocation row",
			m: Matrix{
				Request:    [][]int64{{0, 1}},
				Allocation: [][]int64{{1}},
				Remain:     []int64{0},
			},
			threads: 2,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.m.Validate(tc.threads)
			if got := err == nil; got != tc.ok {
				t.Errorf("Validate(%d) = %v, want ok=%t", tc.threads, err, tc.ok)
			}
		})
	}
}

func TestSafe(t *testing.T) {
	for _, tc := range []struct {
		name    string
		m       Matrix
		threads int
		skip    func(int) bool
		want    bool
	}{
		{
			name: "no threads",
			m: Matrix{
				Request:    [][]int64{{}},
				Allocation: [][]int64{{}},
				Remain:     []int64{1},
			},
			want: false,
		},
		{
			name:    "no resources",
			threads: 2,
			want:    true,
		},
		{
			name: "first request on a free mutex",
			m: Matrix{
				Request:    [][]int64{{1, 0}},
				Allocation: [][]int64{{0, 0}},
				Remain:     []int64{1},
			},
			threads: 2,
			want:    true,
		},
		{
			// Thread 0 holds M0 and waits for M1; thread 1 holds M1
			// but has not asked for M0 yet.
			name: "one sided wait",
			m: Matrix{
				Request:    [][]int64{{1, 0}, {1, 1}},
				Allocation: [][]int64{{1, 0}, {0, 1}},
				Remain:     []int64{0, 0},
			},
			threads: 2,
			want:    true,
		},
		{
			name: "circular wait",
			m: Matrix{
				Request:    [][]int64{{1, 1}, {1, 1}},
				Allocation: [][]int64{{1, 0}, {0, 1}},
				Remain:     []int64{0, 0},
			},
			threads: 2,
			want:    false,
		},
		{
			// Threads 0 and 1 wait on each other, but thread 2 is idle
			// and therefore unobstructed. A single pass accepts this.
			name: "circular wait beside an idle thread",
			m: Matrix{
				Request:    [][]int64{{1, 1, 0}, {1, 1, 0}},
				Allocation: [][]int64{{1, 0, 0}, {0, 1, 0}},
				Remain:     []int64{0, 0},
			},
			threads: 3,
			want:    true,
		},
		{
			// Thread 1's need is exactly what is free: not obstructed.
			name: "need equal to remain",
			m: Matrix{
				Request:    [][]int64{{3, 2}},
				Allocation: [][]int64{{1, 0}},
				Remain:     []int64{2},
			},
			threads: 2,
			want:    true,
		},
		{
			name: "columns past threads are ignored",
			m: Matrix{
				Request:    [][]int64{{2, 0}},
				Allocation: [][]int64{{0, 0}},
				Remain:     []int64{1},
			},
			threads: 1,
			want:    false,
		},
		{
			name: "skipped slot is never obstructed",
			m: Matrix{
				Request:    [][]int64{{2, 2}},
				Allocation: [][]int64{{0, 0}},
				Remain:     []int64{1},
			},
			threads: 2,
			skip:    func(slot int) bool { return slot == 0 },
			want:    true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.Safe(tc.threads, tc.skip); got != tc.want {
				t.Errorf("Safe(%d) = %t, want %t", tc.threads, got, tc.want)
			}
		})
	}
}

func TestSkipSemaphoreSlotZero(t *testing.T) {
	// Both threads need more of semaphore 3 than is free.
	obstructed := func(resources int) Matrix {
		var m Matrix
		for i := 0; i < resources; i++ {
			m.AppendRow(2, 1)
		}
		m.Remain[3] = 0
		m.Request[3][0] = 1
		m.Request[3][1] = 1
		return m
	}

	for _, tc := range []struct {
		resources int
		want      bool
	}{
		{resources: 4, want: true},
		{resources: 5, want: false},
		{resources: 6, want: false},
	} {
		m := obstructed(tc.resources)
		if got := m.Safe(2, SkipSemaphoreSlotZero(tc.resources)); got != tc.want {
			t.Errorf("Safe with %d semaphores = %t, want %t", tc.resources, got, tc.want)
		}
	}

	for _, resources := range []int{0, 1, 3, 5} {
		if SkipSemaphoreSlotZero(resources) != nil {
			t.Errorf("SkipSemaphoreSlotZero(%d) skips a slot", resources)
		}
	}
	skip := SkipSemaphoreSlotZero(4)
	if !skip(0) || skip(1) {
		t.Errorf("SkipSemaphoreSlotZero(4) must skip exactly slot 0")
	}
}
