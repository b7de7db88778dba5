// Copyright 2025 The Enclos Authors.
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

// Binary chrootfs exposes a host-backed mount through the LibOS filesystem
// layer for inspection and debugging outside an enclave.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"enclos.dev/enclos/pkg/log"

	// Register the chroot backend.
	_ "enclos.dev/enclos/pkg/libos/fs/chroot"
)

var (
	configPath = flag.String("config", "", "path to a YAML mount config; overrides -root")
	rootPath   = flag.String("root", "", "host directory to mount")
	debugLog   = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(lsCmd), "")
	subcommands.Register(new(catCmd), "")
	subcommands.Register(new(writeCmd), "")
	subcommands.Register(new(statCmd), "")
	subcommands.Register(new(treeCmd), "")

	flag.Parse()

	if *debugLog {
		log.SetLevel(log.Debug)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}

// fail reports a command error and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "chrootfs: "+format+"\n", args...)
	return subcommands.ExitFailure
}
