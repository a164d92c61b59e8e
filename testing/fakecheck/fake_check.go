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

// Package fakecheck provides a Check implementing every lifecycle event, to be
// used in tests. Every event it receives is appended to a shared EventLog so
// tests can assert the relative order of events across checks.
package fakecheck

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Entry is one received event.
type Entry struct {
	Check string
	Event check.Event
	// Args holds the event's inputs rendered as strings.
	Args []string
}

func (e Entry) String() string {
	if len(e.Args) == 0 {
		return string(e.Event)
	}
	return string(e.Event) + " " + strings.Join(e.Args, " ")
}

// EventLog records events in arrival order.
type EventLog struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *EventLog) add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns all recorded entries.
func (l *EventLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Trace returns the entries of one check rendered with Entry.String.
func (l *EventLog) Trace(checkName string) []string {
	result := []string{}
	for _, e := range l.Entries() {
		if e.Check == checkName {
			result = append(result, e.String())
		}
	}
	return result
}

// Events returns the event names received by one check.
func (l *EventLog) Events(checkName string) []check.Event {
	result := []check.Event{}
	for _, e := range l.Entries() {
		if e.Check == checkName {
			result = append(result, e.Event)
		}
	}
	return result
}

// Check is a fake check.
type Check struct {
	name     string
	version  int
	log      *EventLog
	faults   map[check.Event]error
	panics   map[check.Event]any
	reports  map[check.Event][]violation.Violation
	submit   bool
	sim      installable.Submitter
	runModes runmode.Set
}

// Option configures a fake check.
type Option func(*Check)

// WithVersion sets the check's version.
func WithVersion(v int) Option {
	return func(c *Check) { c.version = v }
}

// WithFault makes the check return err from the given event.
func WithFault(ev check.Event, err error) Option {
	return func(c *Check) { c.faults[ev] = err }
}

// WithPanic makes the check panic with p in the given event.
func WithPanic(ev check.Event, p any) Option {
	return func(c *Check) { c.panics[ev] = p }
}

// WithReport makes the check report a violation every time it receives the
// given event. With no packages, the violation is attributed to the event's
// package, if any.
func WithReport(ev check.Event, sev violation.Severity, description string, pkgs ...packageid.PackageID) Option {
	return func(c *Check) {
		c.reports[ev] = append(c.reports[ev], violation.Violation{Severity: sev, Description: description, Packages: pkgs})
	}
}

// WithInstallableSubmission makes the check hand every imported node to the
// simulator received in simulateSling, submitting whatever it classifies as
// installable.
func WithInstallableSubmission() Option {
	return func(c *Check) { c.submit = true }
}

// New returns a fake check recording into log.
func New(name string, log *EventLog, opts ...Option) *Check {
	c := &Check{
		name:    name,
		version: 1,
		log:     log,
		faults:  make(map[check.Event]error),
		panics:  make(map[check.Event]any),
		reports: make(map[check.Event][]violation.Violation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns a check.Factory creating fake checks named name.
func Factory(name string, log *EventLog, opts ...Option) check.Factory {
	return func(check.Config) (check.Check, error) {
		return New(name, log, opts...), nil
	}
}

// Name returns the check's name.
func (c *Check) Name() string { return c.name }

// Version returns the check's version.
func (c *Check) Version() int { return c.version }

// RunModes returns the run modes received in simulateSling.
func (c *Check) RunModes() runmode.Set { return c.runModes }

func (c *Check) handle(r violation.Reporter, ev check.Event, pkg packageid.PackageID, args ...string) error {
	if c.log != nil {
		c.log.add(Entry{Check: c.name, Event: ev, Args: args})
	}
	for _, v := range c.reports[ev] {
		pkgs := v.Packages
		if len(pkgs) == 0 && !pkg.IsZero() {
			pkgs = []packageid.PackageID{pkg}
		}
		r.Report(v.Severity, v.Description, pkgs...)
	}
	if p, ok := c.panics[ev]; ok {
		panic(p)
	}
	return c.faults[ev]
}

// SimulateSling implements check.SlingSimulatorHandler.
func (c *Check) SimulateSling(_ context.Context, r violation.Reporter, sim installable.Submitter, runModes runmode.Set) error {
	c.sim = sim
	c.runModes = runModes
	if runModes.Len() == 0 {
		return c.handle(r, check.EventSimulateSling, packageid.PackageID{})
	}
	return c.handle(r, check.EventSimulateSling, packageid.PackageID{}, runModes.String())
}

// StartedScan implements check.StartedScanHandler.
func (c *Check) StartedScan(_ context.Context, r violation.Reporter) error {
	return c.handle(r, check.EventStartedScan, packageid.PackageID{})
}

// IdentifyPackage implements check.IdentifyPackageHandler.
func (c *Check) IdentifyPackage(_ context.Context, r violation.Reporter, id packageid.PackageID, _ string) error {
	return c.handle(r, check.EventIdentifyPackage, id, id.String())
}

// IdentifySubpackage implements check.IdentifySubpackageHandler.
func (c *Check) IdentifySubpackage(_ context.Context, r violation.Reporter, id, parent packageid.PackageID) error {
	return c.handle(r, check.EventIdentifySubpackage, id, id.String(), parent.String())
}

// ReadManifest implements check.ReadManifestHandler.
func (c *Check) ReadManifest(_ context.Context, r violation.Reporter, id packageid.PackageID, _ archive.Manifest) error {
	return c.handle(r, check.EventReadManifest, id, id.String())
}

// BeforeExtract implements check.BeforeExtractHandler.
func (c *Check) BeforeExtract(_ context.Context, r violation.Reporter, id packageid.PackageID, _ session.Reader,
	_ archive.Properties, _ *archive.MetaInf, subpackages []packageid.PackageID) error {
	args := []string{id.String()}
	args = append(args, packageid.Strings(subpackages)...)
	return c.handle(r, check.EventBeforeExtract, id, args...)
}

// ImportedPath implements check.ImportedPathHandler.
func (c *Check) ImportedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string,
	node *session.Node, action session.PathAction) error {
	if err := c.handle(r, check.EventImportedPath, id, id.String(), path, action.ShortCode()); err != nil {
		return err
	}
	if !c.submit || c.sim == nil {
		return nil
	}
	inst, err := c.sim.Prepare(id, node)
	if err != nil || inst == nil {
		return err
	}
	return c.sim.Submit(inst)
}

// DeletedPath implements check.DeletedPathHandler.
func (c *Check) DeletedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string, _ session.Reader) error {
	return c.handle(r, check.EventDeletedPath, id, id.String(), path)
}

// AfterExtract implements check.AfterExtractHandler.
func (c *Check) AfterExtract(_ context.Context, r violation.Reporter, id packageid.PackageID, _ session.Reader) error {
	return c.handle(r, check.EventAfterExtract, id, id.String())
}

// BeforeSlingInstall implements check.BeforeSlingInstallHandler.
func (c *Check) BeforeSlingInstall(_ context.Context, r violation.Reporter, scanPackage packageid.PackageID,
	inst *installable.Installable, _ session.Reader) error {
	return c.handle(r, check.EventBeforeSlingInstall, scanPackage, scanPackage.String(), inst.Path)
}

// IdentifyEmbeddedPackage implements check.IdentifyEmbeddedPackageHandler.
func (c *Check) IdentifyEmbeddedPackage(_ context.Context, r violation.Reporter, id, parent packageid.PackageID,
	inst *installable.Installable) error {
	return c.handle(r, check.EventIdentifyEmbeddedPackage, id, id.String(), parent.String(), inst.Path)
}

// AppliedRepoInitScripts implements check.AppliedRepoInitScriptsHandler.
func (c *Check) AppliedRepoInitScripts(_ context.Context, r violation.Reporter, scanPackage packageid.PackageID,
	scripts []string, inst *installable.Installable, _ session.Reader) error {
	return c.handle(r, check.EventAppliedRepoInitScripts, scanPackage, scanPackage.String(), inst.Path,
		fmt.Sprintf("%d", len(scripts)))
}

// AfterScanPackage implements check.AfterScanPackageHandler.
func (c *Check) AfterScanPackage(_ context.Context, r violation.Reporter, scanPackage packageid.PackageID, _ session.Reader) error {
	return c.handle(r, check.EventAfterScanPackage, scanPackage, scanPackage.String())
}

// FinishedScan implements check.FinishedScanHandler.
func (c *Check) FinishedScan(_ context.Context, r violation.Reporter) error {
	return c.handle(r, check.EventFinishedScan, packageid.PackageID{})
}
