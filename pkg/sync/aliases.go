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

// Package sync provides synchronization primitives.
package sync

import (
	"runtime"
	"sync"
)

// Mutex is an alias of sync.Mutex.
type Mutex = sync.Mutex

// Goyield yields the processor, allowing other goroutines to run. Spinning
// loops call it between attempts so that the holder of a contended word gets
// to run.
func Goyield() {
	runtime.Gosched()
}
