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
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	want := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestNewlineAppended(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	if diff := cmp.Diff([]string{"no newline", "\n"}, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestLevelFiltering(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Info, Emitter: &Writer{Next: tw}}

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Warningf("shown %d", 3)
	if got, want := strings.Join(tw.lines, ""), "shown 2\nshown 3\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}

	l.SetLevel(Debug)
	if !l.IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false after SetLevel(Debug)")
	}
	l.Debugf("now shown")
	if got := strings.Join(tw.lines, ""); !strings.HasSuffix(got, "now shown\n") {
		t.Errorf("output = %q, want it to end with the debug line", got)
	}
}

func TestGoogleEmitter(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{&Writer{Next: tw}}
	ts := time.Date(2026, time.May, 4, 13, 7, 9, 123456000, time.UTC)
	e.Emit(0, Warning, ts, "mutex %d denied", 3)

	if len(tw.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(tw.lines), tw.lines)
	}
	line := tw.lines[0]
	if !strings.HasPrefix(line, "W0504 13:07:09.123456 ") {
		t.Errorf("unexpected header in %q", line)
	}
	if !strings.Contains(line, "log_test.go:") {
		t.Errorf("caller missing from %q", line)
	}
	if !strings.HasSuffix(line, "] mutex 3 denied\n") {
		t.Errorf("unexpected message in %q", line)
	}
}

func TestMultiEmitter(t *testing.T) {
	a, b := &testWriter{}, &testWriter{}
	m := MultiEmitter{&Writer{Next: a}, &Writer{Next: b}}
	m.Emit(0, Info, time.Now(), "hello %s", "world")
	for _, tw := range []*testWriter{a, b} {
		if got, want := strings.Join(tw.lines, ""), "hello world\n"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: Debug},
		{in: "INFO", want: Info},
		{in: "warn", want: Warning},
		{in: "warning", want: Warning},
		{in: "verbose", wantErr: true},
	} {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %t", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	l := RateLimitedLogger(&BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 10; i++ {
		l.Warningf("denied %d", i)
	}
	if got, want := strings.Join(tw.lines, ""), "denied 0\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRateLimitedLoggerSuppressedCount(t *testing.T) {
	tw := &testWriter{}
	rl := newRateLimitedLogger(&BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 4; i++ {
		rl.Warningf("denied %d", i)
	}
	// Refill the bucket instead of waiting out the interval.
	rl.limit.SetLimit(rate.Inf)
	rl.Warningf("denied %d", 4)
	rl.Warningf("denied %d", 5)

	want := "denied 0\ndenied 4 (3 similar messages suppressed)\ndenied 5\n"
	if got := strings.Join(tw.lines, ""); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestKeyedRateLimitedLogger(t *testing.T) {
	tw := &testWriter{}
	k := NewKeyedRateLimitedLogger(&BasicLogger{Level: Debug, Emitter: &Writer{Next: tw}}, time.Hour)
	for i := 0; i < 3; i++ {
		k.For("mutex").Warningf("denied mutex %d", i)
		k.For("semaphore").Warningf("denied semaphore %d", i)
	}
	if k.For("mutex") != k.For("mutex") {
		t.Errorf("For returned different loggers for the same key")
	}
	if got, want := strings.Join(tw.lines, ""), "denied mutex 0\ndenied semaphore 0\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestLogrusEmitter(t *testing.T) {
	tw := &testWriter{}
	e := NewLogrusEmitter(&Writer{Next: tw})
	e.Emit(0, Debug, time.Now(), "semaphore %d created", 7)
	e.Emit(0, Warning, time.Now(), "deadlock")

	if len(tw.lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(tw.lines), tw.lines)
	}
	if !strings.Contains(tw.lines[0], "level=debug") || !strings.Contains(tw.lines[0], `msg="semaphore 7 created"`) {
		t.Errorf("unexpected debug line %q", tw.lines[0])
	}
	if !strings.Contains(tw.lines[1], "level=warning") || !strings.Contains(tw.lines[1], "msg=deadlock") {
		t.Errorf("unexpected warning line %q", tw.lines[1])
	}
}
