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

// Package filtersets implements a sanity check of package workspace filters.
package filtersets

import (
	"context"
	"fmt"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "filterSets"

const (
	configImportModeSeverity = "importModeSeverity"
	configAllowEmptyFilter   = "allowEmptyFilter"
	configAllowRootFilter    = "allowRootFilter"
)

// Check reports empty workspace filters, filter sets rooted at "/" and filter
// sets with an import mode other than replace.
type Check struct {
	importModeSeverity violation.Severity
	allowEmptyFilter   bool
	allowRootFilter    bool
}

// New returns a filterSets check. Config keys: "importModeSeverity" (MINOR by
// default), "allowEmptyFilter" and "allowRootFilter".
func New(cfg check.Config) (check.Check, error) {
	sev := violation.SeverityMinor
	if cfg.Has(configImportModeSeverity) {
		var err error
		if sev, err = violation.ParseSeverity(cfg.Get(configImportModeSeverity).String()); err != nil {
			return nil, fmt.Errorf("%s: %w", Name, err)
		}
	}
	return &Check{
		importModeSeverity: sev,
		allowEmptyFilter:   cfg.Bool(configAllowEmptyFilter, false),
		allowRootFilter:    cfg.Bool(configAllowRootFilter, false),
	}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// BeforeExtract inspects the filter of each package before its content is
// imported.
func (c *Check) BeforeExtract(_ context.Context, r violation.Reporter, id packageid.PackageID, _ session.Reader,
	_ archive.Properties, metaInf *archive.MetaInf, _ []packageid.PackageID) error {
	var filter *archive.WorkspaceFilter
	if metaInf != nil {
		filter = metaInf.Filter
	}
	if filter == nil || len(filter.Sets) == 0 {
		if !c.allowEmptyFilter {
			r.Report(violation.SeverityMajor, "empty workspace filter is not allowed", id)
		}
		return nil
	}
	for _, s := range filter.Sets {
		if !s.Replaces() {
			r.Report(c.importModeSeverity,
				fmt.Sprintf("non-default import mode %s defined for filter set with root %s", s.ImportMode, s.Root), id)
		}
		if !c.allowRootFilter && s.Root == "/" {
			r.Report(violation.SeverityMajor, "root filter sets are not allowed", id)
		}
	}
	return nil
}
