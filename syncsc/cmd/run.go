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
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/syncsc/pkg/metric"
	"gvisor.dev/syncsc/pkg/scenario"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
	"gvisor.dev/syncsc/pkg/sentry/syscalls/linux"
	"gvisor.dev/syncsc/syncsc/cmd/util"
	"gvisor.dev/syncsc/syncsc/config"
	"gvisor.dev/syncsc/syncsc/profile"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	exportMetrics bool
	output        string
	profile       profile.Paths
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "replay a scenario against a new process"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario> - replays the steps of a .toml or .yaml scenario and reports unmet expectations.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.exportMetrics, "export-metrics", false, "print the kernel metrics in Prometheus text format after the run.")
	f.StringVar(&r.output, "o", "text", "Output format (text, json).")
	r.profile.SetFromFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	sc, err := scenario.Load(f.Arg(0))
	if err != nil {
		return util.Errorf("loading scenario: %v", err)
	}

	k := &kernel.Kernel{}
	if err := k.Init(kernel.InitKernelArgs{
		SyscallTable:      linux.RCore,
		DetectDeadlock:    conf.DetectDeadlock,
		DenialLogInterval: conf.DenialLogInterval,
	}); err != nil {
		util.Fatalf("initializing kernel: %v", err)
	}

	stopProfiling, err := profile.Start(r.profile)
	if err != nil {
		return util.Errorf("starting profiles: %v", err)
	}
	runner := scenario.Runner{Kernel: k, StepTimeout: conf.StepTimeout}
	res, err := runner.Run(ctx, sc)
	stopProfiling()
	if err != nil {
		return util.Errorf("running scenario %q: %v", sc.Name, err)
	}

	switch r.output {
	case "json":
		err = util.WriteJSON(os.Stdout, res)
	default:
		err = writeResult(os.Stdout, sc, res)
	}
	if err != nil {
		util.Fatalf("Error writing output: %v", err)
	}
	if r.exportMetrics {
		if err := metric.WriteText(os.Stdout); err != nil {
			util.Fatalf("Error writing metrics: %v", err)
		}
	}

	if !res.OK() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeResult prints res as a table of steps followed by the failures.
func writeResult(w io.Writer, sc *scenario.Scenario, res *scenario.Result) error {
	fmt.Fprintf(w, "scenario %q, run %s, pid %d\n\n", sc.Name, res.RunID, res.PID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", "STEP", "CALL", "RESULT"); err != nil {
		return err
	}
	for i, st := range sc.Steps {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\n", i, st, res.Steps[i]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", "THREAD", "STATUS", "SYSCALLS"); err != nil {
		return err
	}
	for i, info := range res.Tasks {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\n", i, info.Status, info.TotalSyscalls()); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\nslots: mutex=%d semaphore=%d condvar=%d\n",
		res.Slots[kernel.MutexKind.String()],
		res.Slots[kernel.SemaphoreKind.String()],
		res.Slots[kernel.CondvarKind.String()]); err != nil {
		return err
	}

	if res.OK() {
		_, err := fmt.Fprintln(w, "\nOK")
		return err
	}
	fmt.Fprintf(w, "\n%d FAILURES:\n", len(res.Failures))
	for _, msg := range res.Failures {
		if _, err := fmt.Fprintf(w, "  %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}
