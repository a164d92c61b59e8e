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

// Package overlaps implements a check reporting packages whose workspace
// filters affect paths already covered by a previously scanned package.
package overlaps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "overlaps"

type filterEntry struct {
	id     packageid.PackageID
	filter *archive.WorkspaceFilter
}

// Check reports overlapping workspace filters. Imported paths overlap at
// MINOR, deleted paths at MAJOR. Unless reportAllOverlaps is set, only the
// first overlap of each severity is reported per package.
type Check struct {
	reportAll bool
	filters   []filterEntry
	reported  map[packageid.PackageID]violation.Severity
}

// New returns an overlaps check. Config key: "reportAllOverlaps".
func New(cfg check.Config) (check.Check, error) {
	return &Check{
		reportAll: cfg.Bool("reportAllOverlaps", false),
		reported:  make(map[packageid.PackageID]violation.Severity),
	}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// StartedScan resets the state collected by a previous pass.
func (c *Check) StartedScan(context.Context, violation.Reporter) error {
	c.filters = nil
	clear(c.reported)
	return nil
}

// BeforeExtract remembers the package's workspace filter.
func (c *Check) BeforeExtract(_ context.Context, _ violation.Reporter, id packageid.PackageID, _ session.Reader,
	_ archive.Properties, metaInf *archive.MetaInf, _ []packageid.PackageID) error {
	if metaInf == nil {
		return nil
	}
	for i := range c.filters {
		if c.filters[i].id == id {
			c.filters[i].filter = metaInf.Filter
			return nil
		}
	}
	c.filters = append(c.filters, filterEntry{id: id, filter: metaInf.Filter})
	return nil
}

func (c *Check) filterOf(id packageid.PackageID) *archive.WorkspaceFilter {
	for _, f := range c.filters {
		if f.id == id {
			return f.filter
		}
	}
	return nil
}

func (c *Check) findOverlaps(r violation.Reporter, id packageid.PackageID, path string, sev violation.Severity) {
	if prev, ok := c.reported[id]; !c.reportAll && ok && !prev.IsLessSevereThan(sev) {
		return
	}
	var overlapping []string
	for _, f := range c.filters {
		if f.id != id && f.filter.Contains(path) {
			overlapping = append(overlapping, f.id.String())
		}
	}
	if len(overlapping) == 0 {
		return
	}
	if !c.reportAll {
		c.reported[id] = sev
	}
	r.Report(sev, fmt.Sprintf("affected path %s overlaps [%s]", path, strings.Join(overlapping, ", ")), id)
}

// ImportedPath looks for overlaps of paths in the package's own filter.
func (c *Check) ImportedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string,
	_ *session.Node, _ session.PathAction) error {
	if c.filterOf(id).Contains(path) {
		c.findOverlaps(r, id, path, violation.SeverityMinor)
	}
	return nil
}

// DeletedPath looks for overlaps of deleted paths.
func (c *Check) DeletedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string, _ session.Reader) error {
	c.findOverlaps(r, id, path, violation.SeverityMajor)
	return nil
}
