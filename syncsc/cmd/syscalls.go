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
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/syncsc/pkg/sentry/kernel"
	"gvisor.dev/syncsc/syncsc/cmd/util"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
	table  string
}

// SyscallDoc represents a single entry of a syscall table.
type SyscallDoc struct {
	Num  uintptr `json:"num"`
	Name string  `json:"name"`
}

// TableDoc lists the syscalls of one table, in increasing number order.
type TableDoc struct {
	Name     string       `json:"name"`
	Syscalls []SyscallDoc `json:"syscalls"`
}

type outputFunc func(io.Writer, []TableDoc) error

const tableAll = "all"

// A map of output type names to output functions.
var outputMap = map[string]outputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print the registered syscall tables."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print the registered syscall tables.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, csv, json).")
	f.StringVar(&s.table, "table", tableAll, "The syscall table (e.g. rcore).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := outputMap[s.output]
	if !ok {
		util.Fatalf("Unsupported output format %q", s.output)
	}
	docs, err := tableDocs(s.table)
	if err != nil {
		util.Fatalf("%v", err)
	}
	if err := out(os.Stdout, docs); err != nil {
		util.Fatalf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// tableDocs returns the documentation of the table called name, or of all
// tables if name is "all".
func tableDocs(name string) ([]TableDoc, error) {
	var tables []*kernel.SyscallTable
	if name == tableAll {
		tables = kernel.SyscallTables()
	} else {
		t, ok := kernel.LookupSyscallTable(name)
		if !ok {
			return nil, fmt.Errorf("syscall table %q not found", name)
		}
		tables = []*kernel.SyscallTable{t}
	}

	docs := make([]TableDoc, 0, len(tables))
	for _, t := range tables {
		doc := TableDoc{Name: t.Name}
		for _, num := range t.Numbers() {
			doc.Syscalls = append(doc.Syscalls, SyscallDoc{Num: num, Name: t.Table[num].Name})
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// outputTable outputs the syscall info in tabular format.
func outputTable(w io.Writer, docs []TableDoc) error {
	for _, doc := range docs {
		fmt.Fprintf(w, "%s:\n\n", doc.Name)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", "NUM", "NAME"); err != nil {
			return err
		}
		for _, sc := range doc.Syscalls {
			if _, err := fmt.Fprintf(tw, "%s\t%s\n", strconv.FormatUint(uint64(sc.Num), 10), sc.Name); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// outputJSON outputs the syscall info in JSON format.
func outputJSON(w io.Writer, docs []TableDoc) error {
	return util.WriteJSON(w, docs)
}

// outputCSV outputs the syscall info in CSV format.
func outputCSV(w io.Writer, docs []TableDoc) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write([]string{"table", "num", "name"}); err != nil {
		return err
	}
	for _, doc := range docs {
		for _, sc := range doc.Syscalls {
			if err := csvWriter.Write([]string{doc.Name, strconv.FormatUint(uint64(sc.Num), 10), sc.Name}); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
