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
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/syncsc/pkg/metric"
	"gvisor.dev/syncsc/syncsc/cmd/util"
)

// MetricMetadata implements subcommands.Command for the "metric-metadata"
// command.
type MetricMetadata struct {
	output string
}

// Name implements subcommands.Command.Name.
func (*MetricMetadata) Name() string {
	return "metric-metadata"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*MetricMetadata) Synopsis() string {
	return "list the metrics registered by the kernel"
}

// Usage implements subcommands.Command.Usage.
func (*MetricMetadata) Usage() string {
	return `metric-metadata [-o=text|json] - prints the name, fields and description of every metric.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *MetricMetadata) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.output, "o", "text", "Output format (text, json).")
}

// Execute implements subcommands.Command.Execute.
func (m *MetricMetadata) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	mds := metric.Metadata()
	switch m.output {
	case "text":
		for _, md := range mds {
			fmt.Println(md)
		}
	case "json":
		if err := util.WriteJSON(os.Stdout, mds); err != nil {
			util.Fatalf("Error writing output: %v", err)
		}
	default:
		util.Fatalf("Unsupported output format %q", m.output)
	}
	return subcommands.ExitSuccess
}
