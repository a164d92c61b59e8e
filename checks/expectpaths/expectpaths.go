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

// Package expectpaths implements a check asserting that paths exist, or don't,
// once selected packages are extracted.
package expectpaths

import (
	"context"
	"fmt"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/rule"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "expectPaths"

// violators keeps paths in first-seen order with the packages that violated
// the expectation.
type violators struct {
	paths []string
	pkgs  map[string][]packageid.PackageID
}

func (v *violators) add(path string, id packageid.PackageID) {
	if v.pkgs == nil {
		v.pkgs = make(map[string][]packageid.PackageID)
	}
	if _, ok := v.pkgs[path]; !ok {
		v.paths = append(v.paths, path)
	}
	v.pkgs[path] = append(v.pkgs[path], id)
}

// Check collects expectation failures after each extraction and reports them
// at the end of the pass, one MAJOR violation per path.
type Check struct {
	expected      []string
	notExpected   []string
	afterPackages []rule.Rule
	missing       violators
	unexpected    violators
}

// New returns an expectPaths check. Config keys: "expectedPaths",
// "notExpectedPaths" and "afterPackageIdRules".
func New(cfg check.Config) (check.Check, error) {
	rules, err := rule.FromJSON(cfg.Get("afterPackageIdRules"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	return &Check{
		expected:      cfg.Strings("expectedPaths"),
		notExpected:   cfg.Strings("notExpectedPaths"),
		afterPackages: rules,
	}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// StartedScan resets the state collected by a previous pass.
func (c *Check) StartedScan(context.Context, violation.Reporter) error {
	c.missing = violators{}
	c.unexpected = violators{}
	return nil
}

// AfterExtract evaluates the expectations against the session.
func (c *Check) AfterExtract(ctx context.Context, _ violation.Reporter, id packageid.PackageID, sess session.Reader) error {
	if !rule.LastMatchOrDefault(c.afterPackages, id.String()).IsAllow() {
		return nil
	}
	for _, p := range c.expected {
		ok, err := sess.Exists(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			c.missing.add(p, id)
		}
	}
	for _, p := range c.notExpected {
		ok, err := sess.Exists(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			c.unexpected.add(p, id)
		}
	}
	return nil
}

// FinishedScan reports the collected failures.
func (c *Check) FinishedScan(_ context.Context, r violation.Reporter) error {
	for _, p := range c.missing.paths {
		r.Report(violation.SeverityMajor, "expected path missing: "+p, c.missing.pkgs[p]...)
	}
	for _, p := range c.unexpected.paths {
		r.Report(violation.SeverityMajor, "unexpected path present: "+p, c.unexpected.pkgs[p]...)
	}
	c.missing = violators{}
	c.unexpected = violators{}
	return nil
}
