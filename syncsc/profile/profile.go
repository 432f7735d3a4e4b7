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

// Package profile writes Go runtime profiles of a syncsc invocation.
package profile

import (
	"bytes"
	"compress/gzip"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/google/pprof/profile"
	"gvisor.dev/syncsc/pkg/log"
)

// Kind is the kind of profiling to perform.
type Kind int

const (
	// Block profile.
	Block Kind = iota
	// CPU profile.
	CPU
	// Mutex profile.
	Mutex
)

const (
	// blockProfileRate samples every blocking event. Task sleeps are the
	// interesting part of a scenario run and there are few of them.
	blockProfileRate = 1
	mutexProfileRate = 1
)

func (k Kind) String() string {
	switch k {
	case Block:
		return "block"
	case CPU:
		return "cpu"
	case Mutex:
		return "mutex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Paths are the files to write profiles to. Profiling of a given kind is
// only enabled if its path is set.
type Paths struct {
	Block string
	CPU   string
	Mutex string
}

// SetFromFlags registers the profile flags in f.
func (p *Paths) SetFromFlags(f *flag.FlagSet) {
	f.StringVar(&p.Block, "profile-block", "", "file to write a block profile to. Empty disables profiling.")
	f.StringVar(&p.CPU, "profile-cpu", "", "file to write a CPU profile to. Empty disables profiling.")
	f.StringVar(&p.Mutex, "profile-mutex", "", "file to write a mutex profile to. Empty disables profiling.")
}

// Enabled returns true if any profile kind is enabled.
func (p *Paths) Enabled() bool {
	return p.Block != "" || p.CPU != "" || p.Mutex != ""
}

// Start starts profiling for every kind with a path in p. It returns a
// function which stops profiling and writes the profiles out.
func Start(p Paths) (func(), error) {
	var onStopProfiling []func()
	stopProfiling := func() {
		for _, f := range onStopProfiling {
			f()
		}
	}
	started := time.Now()

	if p.Block != "" {
		log.Infof("Block profiling enabled")
		runtime.SetBlockProfileRate(blockProfileRate)
		onStopProfiling = append(onStopProfiling, func() {
			var buf bytes.Buffer
			if err := pprof.Lookup("block").WriteTo(&buf, 0); err != nil {
				log.Warningf("Error writing block profile: %v", err)
			} else if err := writeCompacted(p.Block, &buf, Block, started); err != nil {
				log.Warningf("Error writing block profile: %v", err)
			}
			runtime.SetBlockProfileRate(0)
			log.Infof("Block profiling stopped")
		})
	}

	if p.CPU != "" {
		log.Infof("CPU profiling enabled")
		var buf bytes.Buffer
		if err := pprof.StartCPUProfile(&buf); err != nil {
			stopProfiling()
			return nil, fmt.Errorf("starting CPU profile: %w", err)
		}
		onStopProfiling = append(onStopProfiling, func() {
			pprof.StopCPUProfile()
			if err := writeCompacted(p.CPU, &buf, CPU, started); err != nil {
				log.Warningf("Error writing CPU profile: %v", err)
			}
			log.Infof("CPU profiling stopped")
		})
	}

	if p.Mutex != "" {
		log.Infof("Mutex profiling enabled")
		prev := runtime.SetMutexProfileFraction(mutexProfileRate)
		onStopProfiling = append(onStopProfiling, func() {
			var buf bytes.Buffer
			if err := pprof.Lookup("mutex").WriteTo(&buf, 0); err != nil {
				log.Warningf("Error writing mutex profile: %v", err)
			} else if err := writeCompacted(p.Mutex, &buf, Mutex, started); err != nil {
				log.Warningf("Error writing mutex profile: %v", err)
			}
			runtime.SetMutexProfileFraction(prev)
			log.Infof("Mutex profiling stopped")
		})
	}

	return stopProfiling, nil
}

// writeCompacted parses the raw profile in buf, drops unreferenced samples
// and locations, and writes it to path with maximum compression.
func writeCompacted(path string, buf *bytes.Buffer, kind Kind, started time.Time) error {
	prof, err := profile.Parse(buf)
	if err != nil {
		return fmt.Errorf("parsing %v profile: %w", kind, err)
	}
	prof = prof.Compact()
	prof.Comments = append(prof.Comments, fmt.Sprintf("syncsc %v profile, started %s", kind, started.Format(time.RFC3339)))

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	writer, err := gzip.NewWriterLevel(out, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("cannot create gzip writer: %w", err)
	}
	if err := prof.WriteUncompressed(writer); err != nil {
		return fmt.Errorf("cannot write profile: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("cannot flush gzip writer: %w", err)
	}
	return out.Close()
}
