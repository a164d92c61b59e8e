// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The packcheck command wraps around the packcheck library to create a
// standalone CLI that scans content package files on the local machine.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/google/packcheck/binary/cli"
	"github.com/google/packcheck/binary/scanrunner"
	"github.com/google/packcheck/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	var subcommand string
	if len(args) >= 2 {
		subcommand = args[1]
	}
	rest := args[1:]
	if subcommand == "scan" {
		rest = args[2:]
	}
	// Assume 'scan' if subcommand is not recognized/specified.
	flags, err := parseFlags(rest)
	if err != nil {
		log.Errorf("Error parsing CLI args: %v", err)
		return scanrunner.ExitFatal
	}
	return scanrunner.RunScan(ctx, flags)
}

func parseFlags(args []string) (*cli.Flags, error) {
	fs := flag.NewFlagSet("packcheck", flag.ContinueOnError)
	root := fs.String("root", ".", "The directory package files are resolved against")
	var packages cli.StringListFlag
	fs.Var(&packages, "packages", "Comma-separated list of package files or glob patterns to scan, in order. Positional arguments are appended.")
	var preInstall cli.StringListFlag
	fs.Var(&preInstall, "pre-install", "Comma-separated list of package files installed before the scan. Checks see their content but not their events.")
	var runModes cli.StringListFlag
	fs.Var(&runModes, "run-modes", "Comma-separated list of run modes of the simulated installation, e.g. author,dev")
	var checks cli.StringListFlag
	fs.Var(&checks, "checks", `Comma-separated list of checks to run, or the aliases "default" and "all". Defaults to "default".`)
	var checklists cli.StringListFlag
	fs.Var(&checklists, "checklist", "Comma-separated list of YAML, TOML or JSON checklists of configured checks. Later checklists overlay the checks of earlier ones by name. Can't be combined with --checks.")
	var output cli.Array
	fs.Var(&output, "o", "The path of the scan report in various formats, e.g. -o json=report.json -o text=report.txt")
	fs.Var(&output, "output", "Alias of -o")
	historyDB := fs.String("history-db", "", "Path of a scan history database the report is saved to")
	failOn := fs.String("fail-on", "MAJOR", "The minimum violation severity that fails the scan: MINOR, MAJOR or SEVERE")
	prefetch := fs.Int("prefetch-workers", 0, "Number of package files opened ahead of the scan. 0 uses the default.")
	verbose := fs.Bool("verbose", false, "Enable this to print debug logs")
	logFile := fs.String("log-file", "", "Write logs to this file instead of stderr. The file is rotated by size.")
	logMaxSize := fs.Int("log-max-size-mb", 100, "Size in megabytes at which the log file is rotated")
	logMaxBackups := fs.Int("log-max-backups", 3, "Number of rotated log files to keep. 0 keeps all.")
	logMaxAge := fs.Int("log-max-age-days", 0, "Days to keep rotated log files. 0 keeps them regardless of age.")
	printVersion := fs.Bool("version", false, "Print the packcheck version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	flags := &cli.Flags{
		Root:            *root,
		Packages:        append(packages.GetSlice(), fs.Args()...),
		PreInstall:      preInstall.GetSlice(),
		RunModes:        runModes.GetSlice(),
		Checks:          checks.GetSlice(),
		Checklists:      checklists.GetSlice(),
		Output:          output,
		HistoryDB:       *historyDB,
		FailOn:          *failOn,
		PrefetchWorkers: *prefetch,
		Verbose:         *verbose,
		LogFile:         *logFile,
		LogMaxSizeMB:    *logMaxSize,
		LogMaxBackups:   *logMaxBackups,
		LogMaxAgeDays:   *logMaxAge,
		PrintVersion:    *printVersion,
	}
	if err := cli.ValidateFlags(flags); err != nil {
		return nil, err
	}
	return flags, nil
}
