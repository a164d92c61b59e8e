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

package check

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/stats"
	"github.com/google/packcheck/violation"
	"go.uber.org/multierr"
)

// Fault is an error returned or a panic raised by a check's event handler.
type Fault struct {
	Check   string
	Event   Event
	Package packageid.PackageID
	Err     error
	// Panic holds the recovered value if the handler panicked.
	Panic any
}

func (f *Fault) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("check %s panicked in %s: %v", f.Check, f.Event, f.Panic)
	}
	return fmt.Sprintf("check %s failed in %s: %v", f.Check, f.Event, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Recorder receives the violations emitted during dispatch.
type Recorder interface {
	Record(v violation.Violation) error
}

// Dispatcher fans lifecycle events out to the registered checks. A check that
// fails on one event is recorded as a SEVERE violation and dispatch continues
// with the remaining checks.
type Dispatcher struct {
	reg      *Registry
	rec      Recorder
	stats    stats.Collector
	current  func() (packageid.PackageID, bool)
	silenced bool
	faults   map[string][]*plugin.EventError
	err      error
}

// NewDispatcher returns a dispatcher over the checks of reg. current returns
// the innermost open package, used to attribute faults.
func NewDispatcher(reg *Registry, rec Recorder, c stats.Collector, current func() (packageid.PackageID, bool)) *Dispatcher {
	if c == nil {
		c = stats.NoopCollector{}
	}
	if current == nil {
		current = func() (packageid.PackageID, bool) { return packageid.PackageID{}, false }
	}
	return &Dispatcher{
		reg:     reg,
		rec:     rec,
		stats:   c,
		current: current,
		faults:  make(map[string][]*plugin.EventError),
	}
}

// SetSilenced toggles silent mode. While silenced, package scoped events are
// not dispatched and reported violations are discarded.
func (d *Dispatcher) SetSilenced(silenced bool) { d.silenced = silenced }

// Silenced reports whether the dispatcher is silenced.
func (d *Dispatcher) Silenced() bool { return d.silenced }

// Err returns the errors the recorder returned, if any.
func (d *Dispatcher) Err() error { return d.err }

// Statuses returns one status per registered check, in registration order.
func (d *Dispatcher) Statuses() []*plugin.Status {
	var result []*plugin.Status
	for _, c := range d.reg.Checks() {
		result = append(result, plugin.FromFaults(c, d.faults[c.Name()]))
	}
	return result
}

func (d *Dispatcher) record(v violation.Violation) {
	if d.silenced {
		return
	}
	multierr.AppendInto(&d.err, d.rec.Record(v))
}

func (d *Dispatcher) reporter(name string) violation.Reporter {
	return violation.ReporterFunc(func(sev violation.Severity, description string, pkgs ...packageid.PackageID) {
		d.record(violation.Violation{
			Check:       name,
			Severity:    sev,
			Description: description,
			Packages:    append([]packageid.PackageID(nil), pkgs...),
		})
	})
}

// handler invokes one event on one check. It returns false if the check
// doesn't handle the event.
type handler func(c Check, r violation.Reporter) (bool, error)

func (d *Dispatcher) dispatch(ev Event, fn handler) {
	if d.silenced && ev.PackageScoped() {
		return
	}
	log.Debugf("dispatching %s", ev)
	for _, c := range d.reg.Checks() {
		start := time.Now()
		handled, f := d.invoke(c, ev, fn)
		if !handled {
			continue
		}
		if f == nil {
			d.stats.AfterCheckEvent(c.Name(), string(ev), time.Since(start), nil)
			continue
		}
		d.stats.AfterCheckEvent(c.Name(), string(ev), time.Since(start), f)
		d.fault(f)
	}
}

func (d *Dispatcher) invoke(c Check, ev Event, fn handler) (handled bool, f *Fault) {
	defer func() {
		if p := recover(); p != nil {
			handled = true
			f = &Fault{Check: c.Name(), Event: ev, Err: fmt.Errorf("panic: %v", p), Panic: p}
			log.Debugf("%s panic stack:\n%s", c.Name(), debug.Stack())
		}
	}()
	handled, err := fn(c, d.reporter(c.Name()))
	if err != nil {
		return handled, &Fault{Check: c.Name(), Event: ev, Err: err}
	}
	return handled, nil
}

func (d *Dispatcher) fault(f *Fault) {
	var pkgs []packageid.PackageID
	if id, ok := d.current(); ok && f.Event.PackageScoped() {
		f.Package = id
		pkgs = []packageid.PackageID{id}
	}
	log.Errorf("%v", f)
	d.faults[f.Check] = append(d.faults[f.Check], &plugin.EventError{
		Event:        string(f.Event),
		Package:      f.Package.String(),
		ErrorMessage: f.Error(),
	})
	d.record(violation.Violation{
		Check:       f.Check,
		Severity:    violation.SeveritySevere,
		Description: f.Error(),
		Packages:    pkgs,
	})
}

// SimulateSling dispatches simulateSling.
func (d *Dispatcher) SimulateSling(ctx context.Context, sim installable.Submitter, runModes runmode.Set) {
	d.dispatch(EventSimulateSling, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(SlingSimulatorHandler)
		if !ok {
			return false, nil
		}
		return true, h.SimulateSling(ctx, r, sim, runModes)
	})
}

// StartedScan dispatches startedScan.
func (d *Dispatcher) StartedScan(ctx context.Context) {
	d.dispatch(EventStartedScan, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(StartedScanHandler)
		if !ok {
			return false, nil
		}
		return true, h.StartedScan(ctx, r)
	})
}

// IdentifyPackage dispatches identifyPackage.
func (d *Dispatcher) IdentifyPackage(ctx context.Context, id packageid.PackageID, file string) {
	d.dispatch(EventIdentifyPackage, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(IdentifyPackageHandler)
		if !ok {
			return false, nil
		}
		return true, h.IdentifyPackage(ctx, r, id, file)
	})
}

// IdentifySubpackage dispatches identifySubpackage.
func (d *Dispatcher) IdentifySubpackage(ctx context.Context, id, parent packageid.PackageID) {
	d.dispatch(EventIdentifySubpackage, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(IdentifySubpackageHandler)
		if !ok {
			return false, nil
		}
		return true, h.IdentifySubpackage(ctx, r, id, parent)
	})
}

// ReadManifest dispatches readManifest.
func (d *Dispatcher) ReadManifest(ctx context.Context, id packageid.PackageID, m archive.Manifest) {
	d.dispatch(EventReadManifest, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(ReadManifestHandler)
		if !ok {
			return false, nil
		}
		return true, h.ReadManifest(ctx, r, id, m)
	})
}

// BeforeExtract dispatches beforeExtract.
func (d *Dispatcher) BeforeExtract(ctx context.Context, id packageid.PackageID, sess session.Reader,
	props archive.Properties, metaInf *archive.MetaInf, subpackages []packageid.PackageID) {
	d.dispatch(EventBeforeExtract, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(BeforeExtractHandler)
		if !ok {
			return false, nil
		}
		return true, h.BeforeExtract(ctx, r, id, sess, props, metaInf, subpackages)
	})
}

// ImportedPath dispatches importedPath.
func (d *Dispatcher) ImportedPath(ctx context.Context, id packageid.PackageID, path string, node *session.Node, action session.PathAction) {
	d.dispatch(EventImportedPath, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(ImportedPathHandler)
		if !ok {
			return false, nil
		}
		return true, h.ImportedPath(ctx, r, id, path, node, action)
	})
}

// DeletedPath dispatches deletedPath.
func (d *Dispatcher) DeletedPath(ctx context.Context, id packageid.PackageID, path string, sess session.Reader) {
	d.dispatch(EventDeletedPath, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(DeletedPathHandler)
		if !ok {
			return false, nil
		}
		return true, h.DeletedPath(ctx, r, id, path, sess)
	})
}

// AfterExtract dispatches afterExtract.
func (d *Dispatcher) AfterExtract(ctx context.Context, id packageid.PackageID, sess session.Reader) {
	d.dispatch(EventAfterExtract, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(AfterExtractHandler)
		if !ok {
			return false, nil
		}
		return true, h.AfterExtract(ctx, r, id, sess)
	})
}

// BeforeSlingInstall dispatches beforeSlingInstall.
func (d *Dispatcher) BeforeSlingInstall(ctx context.Context, scanPackage packageid.PackageID, inst *installable.Installable, sess session.Reader) {
	d.dispatch(EventBeforeSlingInstall, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(BeforeSlingInstallHandler)
		if !ok {
			return false, nil
		}
		return true, h.BeforeSlingInstall(ctx, r, scanPackage, inst, sess)
	})
}

// IdentifyEmbeddedPackage dispatches identifyEmbeddedPackage.
func (d *Dispatcher) IdentifyEmbeddedPackage(ctx context.Context, id, parent packageid.PackageID, inst *installable.Installable) {
	d.dispatch(EventIdentifyEmbeddedPackage, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(IdentifyEmbeddedPackageHandler)
		if !ok {
			return false, nil
		}
		return true, h.IdentifyEmbeddedPackage(ctx, r, id, parent, inst)
	})
}

// AppliedRepoInitScripts dispatches appliedRepoInitScripts.
func (d *Dispatcher) AppliedRepoInitScripts(ctx context.Context, scanPackage packageid.PackageID, scripts []string,
	inst *installable.Installable, sess session.Reader) {
	d.dispatch(EventAppliedRepoInitScripts, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(AppliedRepoInitScriptsHandler)
		if !ok {
			return false, nil
		}
		return true, h.AppliedRepoInitScripts(ctx, r, scanPackage, scripts, inst, sess)
	})
}

// AfterScanPackage dispatches afterScanPackage.
func (d *Dispatcher) AfterScanPackage(ctx context.Context, scanPackage packageid.PackageID, sess session.Reader) {
	d.dispatch(EventAfterScanPackage, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(AfterScanPackageHandler)
		if !ok {
			return false, nil
		}
		return true, h.AfterScanPackage(ctx, r, scanPackage, sess)
	})
}

// FinishedScan dispatches finishedScan.
func (d *Dispatcher) FinishedScan(ctx context.Context) {
	d.dispatch(EventFinishedScan, func(c Check, r violation.Reporter) (bool, error) {
		h, ok := c.(FinishedScanHandler)
		if !ok {
			return false, nil
		}
		return true, h.FinishedScan(ctx, r)
	})
}
