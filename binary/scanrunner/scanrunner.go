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

// Package scanrunner provides the main function for running a scan with the packcheck binary.
package scanrunner

import (
	"context"

	"github.com/google/packcheck"
	"github.com/google/packcheck/binary/cli"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/version"
)

// Exit codes returned by RunScan.
const (
	// ExitClean means no violation met the --fail-on severity.
	ExitClean = 0
	// ExitViolations means at least one violation met the --fail-on severity.
	ExitViolations = 1
	// ExitFatal means the scan couldn't run or was aborted.
	ExitFatal = 2
	// ExitCancelled means the scan was cancelled before it finished.
	ExitCancelled = 3
)

// RunScan executes the scan with the given CLI flags
// and returns the exit code passed to os.Exit() in the main binary.
func RunScan(ctx context.Context, flags *cli.Flags) int {
	if flags.PrintVersion {
		log.Infof("packcheck v%s", version.ScannerVersion)
		return ExitClean
	}

	if flags.LogFile != "" {
		w := log.NewRotatingFile(log.FileOptions{
			Path:       flags.LogFile,
			MaxSizeMB:  flags.LogMaxSizeMB,
			MaxBackups: flags.LogMaxBackups,
			MaxAgeDays: flags.LogMaxAgeDays,
		})
		prev := log.SetLogger(log.NewSlogLogger(w, flags.Verbose))
		defer func() {
			log.SetLogger(prev)
			if err := w.Close(); err != nil {
				log.Errorf("Failed to close log file %s: %v", flags.LogFile, err)
			}
		}()
	} else if flags.Verbose {
		defer log.SetLogger(log.SetLogger(&log.DefaultLogger{Verbose: true}))
	}

	cfg, err := flags.GetScanConfig()
	if err != nil {
		log.Errorf("%v.GetScanConfig(): %v", flags, err)
		return ExitFatal
	}
	if cfg.History != nil {
		defer func() {
			if err := cfg.History.Close(); err != nil {
				log.Errorf("Failed to close scan history: %v", err)
			}
		}()
	}

	log.Infof("Running scan with %d checks", cfg.Registry.Len())
	log.Infof("Packages to scan: %s", cfg.Packages)
	if len(cfg.PreInstall) > 0 {
		log.Infof("Pre-installed packages: %s", cfg.PreInstall)
	}

	result := packcheck.New().Scan(ctx, cfg)

	log.Infof("Scan status: %v", result.Status)
	for _, s := range result.CheckStatus {
		if !s.Succeeded() {
			log.Warnf("Check '%s' did not succeed. Status: %v, Reason: %s", s.Name, s.Status, s.Status.FailureReason)
		}
	}
	if result.Report != nil {
		log.Infof("Found %d violations, most severe: %s", len(result.Report.Violations), result.Report.MaxSeverity())
		if err := flags.WriteScanResults(result); err != nil {
			log.Errorf("Error writing scan results: %v", err)
			return ExitFatal
		}
	}

	switch result.Status.Status {
	case plugin.ScanStatusFailed:
		log.Errorf("Scan wasn't successful: %s", result.Status.FailureReason)
		return ExitFatal
	case plugin.ScanStatusCancelled:
		log.Warnf("Scan was cancelled: %s", result.Report.Reason)
		return ExitCancelled
	}
	if packcheck.Failed(result, flags.FailOnSeverity()) {
		log.Warnf("Scan reported violations of severity %s or higher", flags.FailOnSeverity())
		return ExitViolations
	}
	return ExitClean
}
