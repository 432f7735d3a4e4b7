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

// Package syncerr contains the errors returned by the synchronization
// syscalls, exported as *errors.Error pointers so that they can be compared
// directly.
package syncerr

import (
	"errors"

	"golang.org/x/sys/unix"
	syncerrors "gvisor.dev/syncsc/pkg/errors"
)

// Syscall return codes.
const (
	// DeadlockCode is returned in place of blocking when granting a request
	// could deadlock the process.
	DeadlockCode = -0xDEAD

	// InvalidCode is returned for an argument outside its domain.
	InvalidCode = -1

	// NoSysCode is returned for an unknown syscall number.
	NoSysCode = -int64(unix.ENOSYS)
)

// The following errors are the complete set a synchronization syscall can
// fail with.
var (
	noError   *syncerrors.Error = nil
	EDEADLOCK                   = syncerrors.New(DeadlockCode, unix.EDEADLK, "resource deadlock would occur")
	EINVAL                      = syncerrors.New(InvalidCode, unix.EINVAL, "invalid argument")
	ENOSYS                      = syncerrors.New(NoSysCode, unix.ENOSYS, "invalid system call number")
)

// Equals compares a syncerrors.Error to a generic error.
func Equals(e *syncerrors.Error, err error) bool {
	if err == nil {
		return e == noError || e == nil
	}
	var se *syncerrors.Error
	if errors.As(err, &se) {
		return se == e
	}
	return false
}

// ToReturn converts the result of a syscall handler into the value returned
// to the caller. Errors that are not *syncerrors.Error map to the host errno
// when one can be found, and to InvalidCode otherwise.
func ToReturn(rval uintptr, err error) int64 {
	if err == nil {
		return int64(rval)
	}
	var se *syncerrors.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return -int64(errno)
	}
	return InvalidCode
}
