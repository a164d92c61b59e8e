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

// Package check defines the interface of scan checks and the registry that
// dispatches lifecycle events to them.
//
// A check implements Check plus any subset of the handler interfaces below.
// Events a check doesn't implement a handler for are skipped for that check.
// Every handler receives a Reporter bound to the check for emitting
// violations, and may return an error to signal a fault.
package check

import (
	"context"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Check is the interface every scan check implements.
type Check interface {
	plugin.Plugin
}

// Factory creates a check from its configuration document.
type Factory func(cfg Config) (Check, error)

// Event names one lifecycle event.
type Event string

// Lifecycle events, in the order they are first dispatched during a scan.
const (
	EventSimulateSling           Event = "simulateSling"
	EventStartedScan             Event = "startedScan"
	EventIdentifyPackage         Event = "identifyPackage"
	EventIdentifySubpackage      Event = "identifySubpackage"
	EventReadManifest            Event = "readManifest"
	EventBeforeExtract           Event = "beforeExtract"
	EventImportedPath            Event = "importedPath"
	EventDeletedPath             Event = "deletedPath"
	EventAfterExtract            Event = "afterExtract"
	EventBeforeSlingInstall      Event = "beforeSlingInstall"
	EventIdentifyEmbeddedPackage Event = "identifyEmbeddedPackage"
	EventAppliedRepoInitScripts  Event = "appliedRepoInitScripts"
	EventAfterScanPackage        Event = "afterScanPackage"
	EventFinishedScan            Event = "finishedScan"
)

// PackageScoped reports whether the event concerns one package. Package
// scoped events are suppressed while the dispatcher is silenced.
func (e Event) PackageScoped() bool {
	switch e {
	case EventSimulateSling, EventStartedScan, EventFinishedScan:
		return false
	default:
		return true
	}
}

// SlingSimulatorHandler receives the installable simulator and the active run
// modes once, before the scan starts.
type SlingSimulatorHandler interface {
	SimulateSling(ctx context.Context, r violation.Reporter, sim installable.Submitter, runModes runmode.Set) error
}

// StartedScanHandler is notified when a scan pass starts.
type StartedScanHandler interface {
	StartedScan(ctx context.Context, r violation.Reporter) error
}

// IdentifyPackageHandler is notified when a scan target is opened.
type IdentifyPackageHandler interface {
	IdentifyPackage(ctx context.Context, r violation.Reporter, id packageid.PackageID, file string) error
}

// IdentifySubpackageHandler is notified when a sub-package is opened.
type IdentifySubpackageHandler interface {
	IdentifySubpackage(ctx context.Context, r violation.Reporter, id, parent packageid.PackageID) error
}

// ReadManifestHandler receives the manifest of packages that carry one.
type ReadManifestHandler interface {
	ReadManifest(ctx context.Context, r violation.Reporter, id packageid.PackageID, m archive.Manifest) error
}

// BeforeExtractHandler is notified right before a package's content is
// replayed into the session.
type BeforeExtractHandler interface {
	BeforeExtract(ctx context.Context, r violation.Reporter, id packageid.PackageID, sess session.Reader,
		props archive.Properties, metaInf *archive.MetaInf, subpackages []packageid.PackageID) error
}

// ImportedPathHandler is notified for every imported path.
type ImportedPathHandler interface {
	ImportedPath(ctx context.Context, r violation.Reporter, id packageid.PackageID, path string,
		node *session.Node, action session.PathAction) error
}

// DeletedPathHandler is notified for every path removed by an import.
type DeletedPathHandler interface {
	DeletedPath(ctx context.Context, r violation.Reporter, id packageid.PackageID, path string, sess session.Reader) error
}

// AfterExtractHandler is notified once a package's content was replayed.
type AfterExtractHandler interface {
	AfterExtract(ctx context.Context, r violation.Reporter, id packageid.PackageID, sess session.Reader) error
}

// BeforeSlingInstallHandler is notified before each queued installable is
// processed.
type BeforeSlingInstallHandler interface {
	BeforeSlingInstall(ctx context.Context, r violation.Reporter, scanPackage packageid.PackageID,
		inst *installable.Installable, sess session.Reader) error
}

// IdentifyEmbeddedPackageHandler is notified when an embedded package is
// opened.
type IdentifyEmbeddedPackageHandler interface {
	IdentifyEmbeddedPackage(ctx context.Context, r violation.Reporter, id, parent packageid.PackageID,
		inst *installable.Installable) error
}

// AppliedRepoInitScriptsHandler is notified after repository initialization
// scripts were applied.
type AppliedRepoInitScriptsHandler interface {
	AppliedRepoInitScripts(ctx context.Context, r violation.Reporter, scanPackage packageid.PackageID,
		scripts []string, inst *installable.Installable, sess session.Reader) error
}

// AfterScanPackageHandler is notified once a scan target and everything it
// contains was processed.
type AfterScanPackageHandler interface {
	AfterScanPackage(ctx context.Context, r violation.Reporter, scanPackage packageid.PackageID, sess session.Reader) error
}

// FinishedScanHandler is notified when a scan pass ends.
type FinishedScanHandler interface {
	FinishedScan(ctx context.Context, r violation.Reporter) error
}
