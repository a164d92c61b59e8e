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

// Package packcheck provides an interface for scanning content packages with
// a configurable set of checks and collecting the violations they report.
package packcheck

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/archive/zippkg"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/extract"
	packfs "github.com/google/packcheck/fs"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/orchestrator"
	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/reportstore"
	"github.com/google/packcheck/result"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/stats"
	"github.com/google/packcheck/version"
	"github.com/google/packcheck/violation"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var (
	errNoPackages        = errors.New("no packages to scan")
	errNoArchives        = errors.New("no package root or archive provider specified")
	errRegistryAndChecks = errors.New("registry and checks are mutually exclusive")
)

// Scanner is the main entry point of the scanner.
type Scanner struct{}

// New creates a new scanner instance.
func New() *Scanner { return &Scanner{} }

// ScanConfig stores the config settings of a scan run such as the checks to
// run and the packages to scan.
type ScanConfig struct {
	// Checks to run with empty configurations, in dispatch order.
	Checks []check.Check
	// Optional: a registry of configured checks, e.g. built from a checklist.
	// Can't be combined with Checks.
	Registry *check.Registry
	// Packages are the package files to scan, in order.
	Packages []string
	// Optional: package files installed before the scan. Checks see their
	// content but not their events.
	PreInstall []string
	// Optional: the run modes of the simulated installation.
	RunModes runmode.Set
	// Package files are resolved against PackageRoot unless Archives is set.
	PackageRoot *packfs.Root
	// Optional: the provider package files are opened with.
	Archives archive.Provider
	// Optional: replaces the built-in extraction.
	Extractor extract.Extractor
	// Optional: replaces the in-memory repository of each scan.
	OpenSession func(ctx context.Context) (session.Session, error)
	// Optional: stats allows to enter a metric hook. If left nil, no metrics will be recorded.
	Stats stats.Collector
	// Optional: number of package files opened ahead of the scan.
	PrefetchWorkers int
	// Optional: finalized reports are saved to History.
	History *reportstore.Store
}

// Validate checks that the config can be used for a scan.
func (cfg *ScanConfig) Validate() error {
	var errs error
	if len(cfg.Packages) == 0 {
		errs = multierr.Append(errs, errNoPackages)
	}
	if cfg.Archives == nil && cfg.PackageRoot == nil {
		errs = multierr.Append(errs, errNoArchives)
	}
	if cfg.Registry != nil && len(cfg.Checks) > 0 {
		errs = multierr.Append(errs, errRegistryAndChecks)
	}
	return errs
}

func (cfg *ScanConfig) registry() (*check.Registry, error) {
	if cfg.Registry != nil {
		return cfg.Registry, nil
	}
	reg := check.NewRegistry()
	var errs error
	for _, c := range cfg.Checks {
		multierr.AppendInto(&errs, reg.Register(c, check.Config{}))
	}
	return reg, errs
}

// ScanResult stores the results of a scan incl. scan status and violations found.
type ScanResult = result.ScanResult

// Scan runs one scan pass over the configured packages.
func (Scanner) Scan(ctx context.Context, config *ScanConfig) *ScanResult {
	if config.Stats == nil {
		config.Stats = stats.NoopCollector{}
	}
	sr := &ScanResult{
		Version:   version.ScannerVersion,
		StartTime: time.Now(),
	}
	fail := func(err error) *ScanResult {
		sr.EndTime = time.Now()
		sr.Status = &plugin.ScanStatus{Status: plugin.ScanStatusFailed, FailureReason: err.Error()}
		config.Stats.AfterScan(sr.EndTime.Sub(sr.StartTime), sr.Status)
		return sr
	}
	if err := config.Validate(); err != nil {
		return fail(err)
	}
	reg, err := config.registry()
	if err != nil {
		return fail(err)
	}
	archives := config.Archives
	if archives == nil {
		archives = zippkg.New(config.PackageRoot)
	}

	o, err := orchestrator.New(orchestrator.Config{
		Checks:      reg,
		Archives:    archives,
		Extractor:   config.Extractor,
		OpenSession: config.OpenSession,
		RunModes:    config.RunModes,
		Stats:       config.Stats,
		Prefetch:    config.PrefetchWorkers,
		ScanID:      uuid.NewString(),
	})
	if err != nil {
		return fail(err)
	}
	log.Infof("scanning %d package(s) with %d check(s)", len(config.Packages), reg.Len())
	rep, err := o.Run(ctx, orchestrator.Targets{Packages: config.Packages, PreInstall: config.PreInstall})
	sr.EndTime = time.Now()
	sr.Report = rep
	sr.Status = o.ScanStatus()
	sr.CheckStatus = o.Statuses()
	slices.SortFunc(sr.CheckStatus, func(a, b *plugin.Status) int { return cmpString(a.Name, b.Name) })
	if err != nil {
		log.Errorf("scan %s failed: %v", rep.ScanID, err)
	}

	if config.History != nil {
		saveToHistory(config, rep)
	}
	return sr
}

// Failed reports whether the scan reported a violation of at least the given
// severity or didn't complete.
func Failed(sr *ScanResult, minimum violation.Severity) bool {
	if sr.Report == nil || !sr.Report.Complete() {
		return true
	}
	return len(sr.Report.AtLeast(minimum)) > 0
}

func saveToHistory(config *ScanConfig, rep *report.ScanReport) {
	var buf bytes.Buffer
	if err := report.Write(&buf, rep); err != nil {
		config.Stats.AfterResultsExported("history", 0, err)
		return
	}
	_, err := config.History.Save(rep)
	if err != nil {
		log.Errorf("saving scan %s to history: %v", rep.ScanID, err)
	}
	config.Stats.AfterResultsExported("history", buf.Len(), err)
}

func cmpString(a, b string) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
