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

// Package testcollector provides an implementation of stats.Collector that
// stores recorded metrics for verification in tests.
package testcollector

import (
	"time"

	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/stats"
)

// Collector implements the stats.Collector interface and simply stores metrics
// by package ID and by check.
type Collector struct {
	stats.NoopCollector
	packageStats     map[string]*stats.PackageStats
	installableStats map[string]*stats.InstallableStats
	checkEvents      map[string]int
	checkFaults      map[string]int
	scanStatus       *plugin.ScanStatus
}

// New returns a new test Collector with maps initialized.
func New() *Collector {
	return &Collector{
		packageStats:     make(map[string]*stats.PackageStats),
		installableStats: make(map[string]*stats.InstallableStats),
		checkEvents:      make(map[string]int),
		checkFaults:      make(map[string]int),
	}
}

// AfterCheckEvent counts handled events and faults per check.
func (c *Collector) AfterCheckEvent(checkName string, _ string, _ time.Duration, err error) {
	c.checkEvents[checkName]++
	if err != nil {
		c.checkFaults[checkName]++
	}
}

// AfterPackageScanned stores the metrics of a processed package.
func (c *Collector) AfterPackageScanned(pkgstats *stats.PackageStats) {
	c.packageStats[pkgstats.ID] = pkgstats
}

// AfterInstallableDrained stores the metrics of a processed installable.
func (c *Collector) AfterInstallableDrained(inststats *stats.InstallableStats) {
	c.installableStats[inststats.Path] = inststats
}

// AfterScan stores the final scan status.
func (c *Collector) AfterScan(_ time.Duration, status *plugin.ScanStatus) {
	c.scanStatus = status
}

// PackageKind returns the kind recorded for a given package, if found.
// Otherwise, returns an empty string.
func (c *Collector) PackageKind(id string) stats.PackageKind {
	if pkgstats, ok := c.packageStats[id]; ok {
		return pkgstats.Kind
	}
	return ""
}

// PackageDepth returns the nesting depth recorded for a given package, if
// found. Otherwise, returns 0.
func (c *Collector) PackageDepth(id string) int {
	if pkgstats, ok := c.packageStats[id]; ok {
		return pkgstats.Depth
	}
	return 0
}

// InstallableResult returns the result recorded for a given installable path,
// if found. Otherwise, returns an empty string.
func (c *Collector) InstallableResult(path string) stats.InstallableResult {
	if inststats, ok := c.installableStats[path]; ok {
		return inststats.Result
	}
	return ""
}

// CheckEvents returns the number of events the check handled.
func (c *Collector) CheckEvents(checkName string) int { return c.checkEvents[checkName] }

// CheckFaults returns the number of faults the check raised.
func (c *Collector) CheckFaults(checkName string) int { return c.checkFaults[checkName] }

// ScanStatus returns the status passed to AfterScan, or nil.
func (c *Collector) ScanStatus() *plugin.ScanStatus { return c.scanStatus }
