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

// Package stats contains interfaces and utilities relating to the collection of
// statistics from packcheck scans.
package stats

import (
	"time"

	"github.com/google/packcheck/plugin"
)

// Collector is a component which is notified when certain events occur. It can be implemented with
// different metric backends to enable monitoring of scans.
type Collector interface {
	// AfterCheckEvent is called after a check handled one lifecycle event. err
	// is the fault raised by the check, if any.
	AfterCheckEvent(checkName string, event string, runtime time.Duration, err error)
	// AfterPackageScanned is called once a package and everything it contains
	// was processed.
	AfterPackageScanned(pkgstats *PackageStats)
	// AfterInstallableDrained is called after a queued installable was processed.
	AfterInstallableDrained(inststats *InstallableStats)
	AfterScan(runtime time.Duration, status *plugin.ScanStatus)

	// AfterResultsExported is called after results have been exported. destination should merely be
	// a category of where the result was written to (e.g. 'file', 'history'), not the precise location.
	AfterResultsExported(destination string, bytes int, err error)
}

// NoopCollector implements Collector by doing nothing.
type NoopCollector struct{}

// AfterCheckEvent implements Collector by doing nothing.
func (c NoopCollector) AfterCheckEvent(checkName string, event string, runtime time.Duration, err error) {
}

// AfterPackageScanned implements Collector by doing nothing.
func (c NoopCollector) AfterPackageScanned(pkgstats *PackageStats) {}

// AfterInstallableDrained implements Collector by doing nothing.
func (c NoopCollector) AfterInstallableDrained(inststats *InstallableStats) {}

// AfterScan implements Collector by doing nothing.
func (c NoopCollector) AfterScan(runtime time.Duration, status *plugin.ScanStatus) {}

// AfterResultsExported implements Collector by doing nothing.
func (c NoopCollector) AfterResultsExported(destination string, bytes int, err error) {}
