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

package kernel

import (
	"gvisor.dev/syncsc/pkg/errors/syncerr"
	"gvisor.dev/syncsc/pkg/log"
	"gvisor.dev/syncsc/pkg/sentry/arch"
)

// ExecuteSyscall runs syscall sysno on behalf of t and returns the value
// seen by the caller: the handler's result, or a negative error code.
// Unknown syscall numbers return syncerr.NoSysCode.
//
// Every call is counted, known or not.
func (t *Task) ExecuteSyscall(sysno uintptr, args arch.SyscallArguments) int64 {
	t.countSyscall(sysno)

	s := t.p.k.syscalls
	fn := s.Lookup(sysno)
	if fn == nil {
		t.Warningf("Unsupported syscall %d", sysno)
		return syncerr.ToReturn(0, syncerr.ENOSYS)
	}

	if log.IsLogging(log.Debug) {
		t.Debugf("%s(%#x, %#x, %#x)", s.LookupName(sysno), args[0].Value, args[1].Value, args[2].Value)
	}
	rval, err := fn(t, args)
	ret := syncerr.ToReturn(rval, err)
	if log.IsLogging(log.Debug) {
		if err != nil {
			t.Debugf("%s = %d (%v)", s.LookupName(sysno), ret, err)
		} else {
			t.Debugf("%s = %d", s.LookupName(sysno), ret)
		}
	}
	return ret
}
