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

// Package config provides basic infrastructure to set configuration settings
// for syncsc. Each setting is registered as a command line flag, and can also
// be set from a TOML configuration file.
package config

import (
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/syncsc/pkg/log"
)

// Config holds configuration that is not part of a scenario.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with name and description.
//  4. Add any necessary validation into validate().
//  5. If the flag can be set in configuration files, mention it in the
//     documentation of the flag.
type Config struct {
	// ConfigFile is the path of a TOML file setting flags that were not
	// given on the command line.
	ConfigFile string `flag:"config"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format: text, json or logrus.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr in addition to
	// LogFilename.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// DetectDeadlock is the initial deadlock detection flag of every
	// process.
	DetectDeadlock bool `flag:"detect-deadlock"`

	// DenialLogInterval is the minimum interval between two warnings about
	// refused requests in one process.
	DenialLogInterval time.Duration `flag:"denial-log-interval"`

	// StepTimeout bounds how long a scenario step may take to return or
	// to block.
	StepTimeout time.Duration `flag:"step-timeout"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "logrus":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json' or 'logrus'", c.LogFormat)
	}
	if c.DenialLogInterval < 0 {
		return fmt.Errorf("denial-log-interval must be positive or zero, got %v", c.DenialLogInterval)
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step-timeout must be positive, got %v", c.StepTimeout)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Infof("  %s: %v", name, getVal(obj.Field(i)))
		}
	}
}
