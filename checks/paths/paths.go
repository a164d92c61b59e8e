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

// Package paths implements a check that denies imports and deletions of
// repository paths by rule.
package paths

import (
	"context"
	"fmt"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/rule"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

const (
	// Name is the unique name of this check.
	Name = "paths"

	configRules          = "rules"
	configDenyAllDeletes = "denyAllDeletes"
	configSeverity       = "severity"
)

// Check reports imported or deleted paths whose last matching rule denies them.
type Check struct {
	rules          []rule.Rule
	denyAllDeletes bool
	severity       violation.Severity
}

// New returns a paths check. Config keys: "rules", "denyAllDeletes" and
// "severity" (MAJOR by default).
func New(cfg check.Config) (check.Check, error) {
	rules, err := rule.FromJSON(cfg.Get(configRules))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	sev := violation.SeverityMajor
	if cfg.Has(configSeverity) {
		if sev, err = violation.ParseSeverity(cfg.Get(configSeverity).String()); err != nil {
			return nil, fmt.Errorf("%s: %w", Name, err)
		}
	}
	return &Check{rules: rules, denyAllDeletes: cfg.Bool(configDenyAllDeletes, false), severity: sev}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// ImportedPath reports paths matching a deny rule.
func (c *Check) ImportedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string,
	_ *session.Node, _ session.PathAction) error {
	if m, ok := rule.LastMatch(c.rules, path); ok && m.IsDeny() {
		r.Report(c.severity, fmt.Sprintf("imported path %s matches deny pattern %s", path, m.Pattern), id)
	}
	return nil
}

// DeletedPath reports deletions matching a deny rule, or all of them.
func (c *Check) DeletedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string, _ session.Reader) error {
	if c.denyAllDeletes {
		r.Report(c.severity, fmt.Sprintf("deleted path %s. All deletions are denied.", path), id)
		return nil
	}
	if m, ok := rule.LastMatch(c.rules, path); ok && m.IsDeny() {
		r.Report(c.severity, fmt.Sprintf("deleted path %s matches deny rule %s", path, m.Pattern), id)
	}
	return nil
}
