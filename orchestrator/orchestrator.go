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

// Package orchestrator drives a scan pass: it opens the requested packages in
// order, replays them into a simulated repository session, drains the
// installables they carry, and dispatches every lifecycle event to the
// registered checks.
//
// All check-visible work runs on the calling goroutine. Package files of
// requested packages may be opened ahead of time by background workers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/extract"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/lineage"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/stats"
	"github.com/google/packcheck/violation"
	"go.uber.org/multierr"
)

// EngineName is the check name stamped on violations raised by the engine
// itself rather than by a check.
const EngineName = "packcheck"

const defaultPrefetch = 2

// Targets are the package files of one pass.
type Targets struct {
	// Packages are the scan targets, scanned in order.
	Packages []string
	// PreInstall packages are installed before the scan starts. Checks don't
	// see their events but do see their content.
	PreInstall []string
}

// Config configures an Orchestrator.
type Config struct {
	Checks   *check.Registry
	Archives archive.Provider
	// Extractor defaults to extract.New().
	Extractor extract.Extractor
	// OpenSession returns the simulated repository of one pass. Defaults to
	// an in-memory sqlite session.
	OpenSession func(ctx context.Context) (session.Session, error)
	RunModes    runmode.Set
	Stats       stats.Collector
	// Prefetch is the number of requested package files opened ahead.
	Prefetch int
	ScanID   string
}

// Orchestrator runs scan passes. It is not safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	statuses []*plugin.Status
	status   *plugin.ScanStatus
}

// New returns an orchestrator for cfg.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Archives == nil {
		return nil, errors.New("no archive provider configured")
	}
	if cfg.Checks == nil {
		cfg.Checks = check.NewRegistry()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.OpenSession == nil {
		cfg.OpenSession = func(ctx context.Context) (session.Session, error) { return session.OpenInMemory(ctx) }
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NoopCollector{}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Statuses returns the per-check statuses of the last pass.
func (o *Orchestrator) Statuses() []*plugin.Status { return o.statuses }

// ScanStatus returns the overall status of the last pass.
func (o *Orchestrator) ScanStatus() *plugin.ScanStatus { return o.status }

// pass is the state of one scan pass.
type pass struct {
	cfg     *Config
	agg     *report.Aggregator
	disp    *check.Dispatcher
	lineage *lineage.Stack
	sim     *installable.Simulator
	sess    session.Session
	ro      session.Reader
	faults  int
}

// Run executes one scan pass and returns its report. The pass can be
// cancelled between packages; the report is then marked CANCELLED and holds
// the violations collected so far. A fatal fault of the session or of the
// engine itself aborts the pass: the report is marked ABORTED and the fault
// is returned.
func (o *Orchestrator) Run(ctx context.Context, t Targets) (*report.ScanReport, error) {
	start := time.Now()
	cfg := &o.cfg
	p := &pass{
		cfg:     cfg,
		agg:     report.NewAggregator(cfg.ScanID),
		lineage: &lineage.Stack{},
		sim:     installable.NewSimulator(cfg.RunModes),
	}
	p.disp = check.NewDispatcher(cfg.Checks, p.agg, cfg.Stats, p.lineage.Current)

	rep, err := p.run(ctx, t)
	o.statuses = p.disp.Statuses()
	o.status = p.scanStatus(rep, err)
	cfg.Stats.AfterScan(time.Since(start), o.status)
	return rep, err
}

func (p *pass) run(ctx context.Context, t Targets) (*report.ScanReport, error) {
	// Package scoped work isn't interruptible. Cancellation is only observed
	// between packages.
	pctx := context.WithoutCancel(ctx)

	sess, err := p.cfg.OpenSession(pctx)
	if err != nil {
		err = fmt.Errorf("opening session: %w", err)
		return p.agg.Finalize(report.OutcomeAborted, err.Error()), err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warnf("closing session: %v", err)
		}
	}()
	p.sess = sess
	p.ro = session.ReadOnly(sess)

	p.disp.SimulateSling(pctx, p.sim, p.cfg.RunModes)

	fatal, cancelled := p.preInstall(ctx, pctx, t.PreInstall)
	// finishedScan always follows, so the pass is started even when
	// pre-install ended it early.
	p.disp.StartedScan(pctx)
	if fatal == nil && !cancelled {
		fatal, cancelled = p.scanTargets(ctx, pctx, t.Packages)
	}

	p.disp.FinishedScan(pctx)
	if err := p.disp.Err(); err != nil {
		log.Errorf("recording violations: %v", err)
	}

	switch {
	case fatal != nil:
		log.Errorf("scan aborted: %v", fatal)
		return p.agg.Finalize(report.OutcomeAborted, fatal.Error()), fatal
	case cancelled:
		log.Warnf("scan cancelled: %v", context.Cause(ctx))
		return p.agg.Finalize(report.OutcomeCancelled, context.Cause(ctx).Error()), nil
	}
	return p.agg.Finalize(report.OutcomeFinished, ""), nil
}

func (p *pass) preInstall(ctx, pctx context.Context, refs []string) (fatal error, cancelled bool) {
	if len(refs) == 0 {
		return nil, false
	}
	p.disp.SetSilenced(true)
	defer p.disp.SetSilenced(false)
	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil, true
		}
		a, err := p.cfg.Archives.Open(pctx, ref)
		if err != nil {
			p.openFault(ref, err)
			continue
		}
		log.Infof("pre-installing %s", a.ID())
		if err := p.scanPackage(pctx, a, ref, stats.PackageKindPreInstall, packageid.PackageID{}, nil); err != nil {
			return err, false
		}
	}
	return nil, false
}

func (p *pass) scanTargets(ctx, pctx context.Context, refs []string) (fatal error, cancelled bool) {
	if len(refs) == 0 {
		return nil, false
	}
	f := newPrefetcher(ctx, p.cfg.Archives, refs, p.cfg.Prefetch)
	defer func() {
		if err := f.close(); err != nil {
			log.Warnf("closing prefetched packages: %v", err)
		}
	}()
	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil, true
		}
		a, err := f.take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, true
			}
			p.openFault(ref, err)
			continue
		}
		if err := p.scanPackage(pctx, a, ref, stats.PackageKindScanTarget, packageid.PackageID{}, nil); err != nil {
			return err, false
		}
	}
	return nil, false
}

// engineViolation records a violation raised by the engine. It bypasses the
// dispatcher so faults of silenced packages are kept.
func (p *pass) engineViolation(sev violation.Severity, description string, pkgs ...packageid.PackageID) {
	p.faults++
	err := p.agg.Record(violation.Violation{
		Check:       EngineName,
		Severity:    sev,
		Description: description,
		Packages:    pkgs,
	})
	if err != nil {
		log.Errorf("recording violation: %v", err)
	}
}

// openFault records a requested package file that couldn't be opened. The
// violation is attributed to the package if its identity could be read.
func (p *pass) openFault(ref string, err error) {
	log.Errorf("%v", err)
	var oe *archive.OpenError
	if errors.As(err, &oe) && !oe.ID.IsZero() {
		p.engineViolation(violation.SeveritySevere, err.Error(), oe.ID)
		return
	}
	p.engineViolation(violation.SeveritySevere, fmt.Sprintf("package %s: %v", ref, err))
}

func (p *pass) scanStatus(rep *report.ScanReport, err error) *plugin.ScanStatus {
	switch {
	case err != nil:
		return &plugin.ScanStatus{Status: plugin.ScanStatusFailed, FailureReason: err.Error()}
	case rep.Outcome == report.OutcomeCancelled:
		return &plugin.ScanStatus{Status: plugin.ScanStatusCancelled, FailureReason: rep.Reason}
	}
	var errs error
	for _, s := range p.disp.Statuses() {
		if !s.Succeeded() {
			multierr.AppendInto(&errs, fmt.Errorf("%s: %s", s.Name, s.Status.FailureReason))
		}
	}
	if p.faults > 0 {
		multierr.AppendInto(&errs, fmt.Errorf("%d package fault(s)", p.faults))
	}
	if errs != nil {
		return &plugin.ScanStatus{Status: plugin.ScanStatusPartiallySucceeded, FailureReason: errs.Error()}
	}
	return &plugin.ScanStatus{Status: plugin.ScanStatusSucceeded}
}
