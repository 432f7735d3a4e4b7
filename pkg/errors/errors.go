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

// Package errors holds the standardized error definition for syscall results.
package errors

import (
	"golang.org/x/sys/unix"
)

// Error represents a syscall failure: the value returned to the caller, the
// closest host errno and a descriptive message.
type Error struct {
	code    int64
	errno   unix.Errno
	message string
}

// New creates a new *Error. code is the (negative) value a syscall returns
// when it fails with this error.
func New(code int64, errno unix.Errno, message string) *Error {
	return &Error{
		code:    code,
		errno:   errno,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Code returns the syscall return value for e.
func (e *Error) Code() int64 { return e.code }

// Errno returns the host errno closest to e.
func (e *Error) Errno() unix.Errno { return e.errno }
