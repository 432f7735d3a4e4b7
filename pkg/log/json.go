// Copyright 2018 The gVisor Authors.
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
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// jsonLog is one JSONEmitter record. PID and Thread are set for messages
// logged through a task, whose prefix is moved out of Msg.
type jsonLog struct {
	Msg    string    `json:"msg"`
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
	Caller string    `json:"caller,omitempty"`
	PID    *int      `json:"pid,omitempty"`
	Thread *int      `json:"thread,omitempty"`
}

// MarshalJSON implements json.Marshaler.MarashalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	switch l {
	case Warning:
		return []byte(`"warning"`), nil
	case Info:
		return []byte(`"info"`), nil
	case Debug:
		return []byte(`"debug"`), nil
	default:
		return nil, fmt.Errorf("unknown level %v", l)
	}
}

// TaskPrefix returns the prefix of messages logged on behalf of thread slot
// thread of process pid.
func TaskPrefix(pid, thread int) string {
	return fmt.Sprintf("[%4d:%4d] ", pid, thread)
}

// splitTaskPrefix is the inverse of TaskPrefix. ok is false if msg does not
// start with a task prefix.
func splitTaskPrefix(msg string) (pid, thread int, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return 0, 0, msg, false
	}
	end := strings.Index(msg, "] ")
	if end < 0 {
		return 0, 0, msg, false
	}
	p, t, found := strings.Cut(msg[1:end], ":")
	if !found {
		return 0, 0, msg, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil {
		return 0, 0, msg, false
	}
	thread, err = strconv.Atoi(strings.TrimSpace(t))
	if err != nil {
		return 0, 0, msg, false
	}
	return pid, thread, msg[end+2:], true
}

// JSONEmitter logs messages in json format.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	j := jsonLog{
		Msg:   fmt.Sprintf(format, v...),
		Level: level,
		Time:  timestamp,
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		if slash := strings.LastIndexByte(file, byte('/')); slash >= 0 {
			file = file[slash+1:] // Trim any directory path from the file.
		}
		j.Caller = fmt.Sprintf("%s:%d", file, line)
	}
	if pid, thread, rest, ok := splitTaskPrefix(j.Msg); ok {
		j.PID, j.Thread, j.Msg = &pid, &thread, rest
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	e.Writer.Write(b)
}
