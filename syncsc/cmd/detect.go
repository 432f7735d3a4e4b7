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

package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"gvisor.dev/syncsc/pkg/log"
	"gvisor.dev/syncsc/pkg/scenario"
	"gvisor.dev/syncsc/syncsc/cmd/util"
)

// Detect implements subcommands.Command for the "detect" command.
type Detect struct{}

// Name implements subcommands.Command.Name.
func (*Detect) Name() string {
	return "detect"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Detect) Synopsis() string {
	return "run the deadlock check over an accounting snapshot"
}

// Usage implements subcommands.Command.Usage.
func (*Detect) Usage() string {
	return `detect <snapshot> - prints "safe" or "unsafe" for the accounting stored in a .toml or .yaml file.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Detect) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Detect) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	s, err := scenario.LoadSnapshot(f.Arg(0))
	if err != nil {
		return util.Errorf("loading snapshot: %v", err)
	}
	safe, err := s.Safe()
	if err != nil {
		return util.Errorf("checking snapshot %q: %v", f.Arg(0), err)
	}
	log.Debugf("Snapshot %q: %d %s slots, %d threads, safe: %t", f.Arg(0), s.Len(), s.Kind, s.Threads, safe)
	fmt.Println(verdict(safe))
	return subcommands.ExitSuccess
}

func verdict(safe bool) string {
	if safe {
		return "safe"
	}
	return "unsafe"
}
