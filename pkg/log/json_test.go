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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelMarshal(t *testing.T) {
	for lv, want := range map[Level]string{Warning: `"warning"`, Info: `"info"`, Debug: `"debug"`} {
		bs, err := lv.MarshalJSON()
		if err != nil {
			t.Fatalf("error marshaling %v: %v", lv, err)
		}
		if string(bs) != want {
			t.Errorf("MarshalJSON(%v) = %s, want %s", lv, bs, want)
		}
	}
	if _, err := Level(9).MarshalJSON(); err == nil {
		t.Errorf("MarshalJSON of an invalid level succeeded")
	}
}

func emitJSON(t *testing.T, format string, v ...any) map[string]any {
	t.Helper()
	tw := &testWriter{}
	e := JSONEmitter{&Writer{Next: tw}}
	e.Emit(0, Info, time.Unix(0, 0).UTC(), format, v...)

	if len(tw.lines) != 2 {
		t.Fatalf("got %d writes, want the record and its newline: %v", len(tw.lines), tw.lines)
	}
	got := make(map[string]any)
	if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	return got
}

func TestJSONEmitter(t *testing.T) {
	got := emitJSON(t, "lock %d", 1)
	if got["level"] != "info" {
		t.Errorf("level = %v, want info", got["level"])
	}
	if got["msg"] != "lock 1" {
		t.Errorf("msg = %q, want %q", got["msg"], "lock 1")
	}
	if caller, _ := got["caller"].(string); !strings.HasPrefix(caller, "json_test.go:") {
		t.Errorf("caller = %q, want json_test.go:<line>", caller)
	}
	if _, ok := got["pid"]; ok {
		t.Errorf("pid set on a message without a task prefix: %v", got)
	}
}

func TestJSONEmitterTaskFields(t *testing.T) {
	got := emitJSON(t, TaskPrefix(0, 3)+"Denied mutex %d", 2)
	if got["msg"] != "Denied mutex 2" {
		t.Errorf("msg = %q, want the prefix stripped", got["msg"])
	}
	// JSON numbers decode as float64.
	if got["pid"] != float64(0) || got["thread"] != float64(3) {
		t.Errorf("pid, thread = %v, %v, want 0, 3", got["pid"], got["thread"])
	}
}

func TestSplitTaskPrefix(t *testing.T) {
	for _, tc := range []struct {
		msg         string
		pid, thread int
		rest        string
		ok          bool
	}{
		{msg: TaskPrefix(12, 345) + "x", pid: 12, thread: 345, rest: "x", ok: true},
		{msg: "[1:2] y", pid: 1, thread: 2, rest: "y", ok: true},
		{msg: "[a:2] y", rest: "[a:2] y"},
		{msg: "[12] y", rest: "[12] y"},
		{msg: "[1:2]y", rest: "[1:2]y"},
		{msg: "plain", rest: "plain"},
	} {
		pid, thread, rest, ok := splitTaskPrefix(tc.msg)
		if pid != tc.pid || thread != tc.thread || rest != tc.rest || ok != tc.ok {
			t.Errorf("splitTaskPrefix(%q) = %d, %d, %q, %t, want %d, %d, %q, %t",
				tc.msg, pid, thread, rest, ok, tc.pid, tc.thread, tc.rest, tc.ok)
		}
	}
}
