// Copyright 2022 The gVisor Authors.
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
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gvisor.dev/syncsc/pkg/sync"
)

type rateLimitedLogger struct {
	logger Logger
	limit  *rate.Limiter

	// suppressed counts messages dropped since the last one logged.
	suppressed atomic.Int64
}

// allow reports whether a message may be logged now, and returns the suffix
// noting how many were dropped before it.
func (rl *rateLimitedLogger) allow() (string, bool) {
	if !rl.limit.Allow() {
		rl.suppressed.Add(1)
		return "", false
	}
	if n := rl.suppressed.Swap(0); n > 0 {
		return fmt.Sprintf(" (%d similar messages suppressed)", n), true
	}
	return "", true
}

func (rl *rateLimitedLogger) Debugf(format string, v ...any) {
	if suffix, ok := rl.allow(); ok {
		rl.logger.Debugf(format+"%s", append(v, suffix)...)
	}
}

func (rl *rateLimitedLogger) Infof(format string, v ...any) {
	if suffix, ok := rl.allow(); ok {
		rl.logger.Infof(format+"%s", append(v, suffix)...)
	}
}

func (rl *rateLimitedLogger) Warningf(format string, v ...any) {
	if suffix, ok := rl.allow(); ok {
		rl.logger.Warningf(format+"%s", append(v, suffix)...)
	}
}

func (rl *rateLimitedLogger) IsLogging(level Level) bool {
	return rl.logger.IsLogging(level)
}

// RateLimitedLogger returns a Logger that logs to the provided logger no more
// than once per the provided duration. The next message logged after a burst
// notes how many were dropped.
func RateLimitedLogger(logger Logger, every time.Duration) Logger {
	return newRateLimitedLogger(logger, every)
}

func newRateLimitedLogger(logger Logger, every time.Duration) *rateLimitedLogger {
	return &rateLimitedLogger{
		logger: logger,
		limit:  rate.NewLimiter(rate.Every(every), 1),
	}
}

// KeyedRateLimitedLogger rate limits each key separately, so a flood of one
// kind of message does not hide another.
type KeyedRateLimitedLogger struct {
	logger Logger
	every  time.Duration

	mu      sync.Mutex
	loggers map[string]*rateLimitedLogger
}

// NewKeyedRateLimitedLogger returns a KeyedRateLimitedLogger whose keys each
// log to logger no more than once per every.
func NewKeyedRateLimitedLogger(logger Logger, every time.Duration) *KeyedRateLimitedLogger {
	return &KeyedRateLimitedLogger{
		logger:  logger,
		every:   every,
		loggers: make(map[string]*rateLimitedLogger),
	}
}

// For returns the Logger for key.
func (k *KeyedRateLimitedLogger) For(key string) Logger {
	k.mu.Lock()
	defer k.mu.Unlock()
	rl, ok := k.loggers[key]
	if !ok {
		rl = newRateLimitedLogger(k.logger, k.every)
		k.loggers[key] = rl
	}
	return rl
}
