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

package metric

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"
)

// reset clears all global state in the metric package.
func reset() {
	allMetrics = makeMetricSet()
}

func TestInitialize(t *testing.T) {
	defer reset()

	if _, err := NewUint64Metric("/foo", "Foo!"); err != nil {
		t.Fatalf("NewUint64Metric got err %v want nil", err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize(): %v", err)
	}
	if _, err := NewUint64Metric("/bar", "Bar"); !errors.Is(err, ErrInitializationDone) {
		t.Errorf("NewUint64Metric after Initialize got err %v want %v", err, ErrInitializationDone)
	}
	if err := Initialize(); err == nil {
		t.Errorf("second Initialize succeeded")
	}
}

func TestRegistrationErrors(t *testing.T) {
	defer reset()

	if _, err := NewUint64Metric("/dup", "first"); err != nil {
		t.Fatalf("NewUint64Metric got err %v want nil", err)
	}
	if _, err := NewUint64Metric("/dup", "second"); !errors.Is(err, ErrNameInUse) {
		t.Errorf("duplicate name got err %v want %v", err, ErrNameInUse)
	}
	if _, err := NewUint64Metric("no_slash", "bad"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("invalid name got err %v want %v", err, ErrInvalidName)
	}
	if _, err := NewUint64Metric("/empty", "bad", NewField("kind")); !errors.Is(err, ErrFieldHasNoAllowedValues) {
		t.Errorf("empty field got err %v want %v", err, ErrFieldHasNoAllowedValues)
	}
}

func TestFieldValues(t *testing.T) {
	defer reset()

	m := MustCreateNewUint64Metric("/sync/ops", "ops",
		NewField("kind", "mutex", "semaphore"),
		NewField("result", "ok", "deadlock", "einval"))
	m.Increment("mutex", "ok")
	m.Increment("mutex", "ok")
	m.IncrementBy(5, "semaphore", "deadlock")

	for _, tc := range []struct {
		kind, result string
		want         uint64
	}{
		{"mutex", "ok", 2},
		{"mutex", "deadlock", 0},
		{"semaphore", "deadlock", 5},
		{"semaphore", "einval", 0},
	} {
		if got := m.Value(tc.kind, tc.result); got != tc.want {
			t.Errorf("Value(%q, %q) = %d, want %d", tc.kind, tc.result, got, tc.want)
		}
	}

	for key := 0; key < m.fieldMapper.numFieldCombinations; key++ {
		if got := m.fieldMapper.lookup(m.fieldMapper.keyToValues(key)...); got != key {
			t.Errorf("lookup(keyToValues(%d)) = %d", key, got)
		}
	}
}

func TestDisallowedFieldValuePanics(t *testing.T) {
	defer reset()

	m := MustCreateNewUint64Metric("/sync/denied", "denied", NewField("kind", "mutex"))
	defer func() {
		if recover() == nil {
			t.Errorf("Increment with a disallowed value did not panic")
		}
	}()
	m.Increment("condvar")
}

func TestWriteText(t *testing.T) {
	defer reset()

	plain := MustCreateNewUint64Metric("/sync/total", "All operations.")
	byKind := MustCreateNewUint64Metric("/sync/deadlock_denied", "Denied requests.", NewField("kind", "mutex", "semaphore"))
	plain.IncrementBy(3)
	byKind.Increment("semaphore")

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("WriteText(): %v", err)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}

	got := make(map[string]float64)
	for name, mf := range families {
		for _, m := range mf.GetMetric() {
			key := name
			for _, l := range m.GetLabel() {
				key += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			got[key] = m.GetCounter().GetValue()
		}
	}
	want := map[string]float64{
		"syncsc_sync_total":                           3,
		"syncsc_sync_deadlock_denied{kind=mutex}":     0,
		"syncsc_sync_deadlock_denied{kind=semaphore}": 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected samples (-want +got):\n%s", diff)
	}
}

func TestMetadata(t *testing.T) {
	defer reset()

	MustCreateNewUint64Metric("/b", "second", NewField("kind", "x", "y"))
	MustCreateNewUint64Metric("/a", "first")

	want := []MetricMetadata{
		{Name: "/a", Description: "first"},
		{Name: "/b", Description: "second", Fields: map[string][]string{"kind": {"x", "y"}}},
	}
	if diff := cmp.Diff(want, Metadata()); diff != "" {
		t.Errorf("unexpected metadata (-want +got):\n%s", diff)
	}
	if got, want := Metadata()[1].String(), "/b{kind=x|y}: second"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
