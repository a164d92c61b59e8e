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

// Package subpackages implements a check restricting which sub-packages a
// package may carry.
package subpackages

import (
	"context"
	"fmt"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/rule"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "subpackages"

// Check reports denied sub-packages.
type Check struct {
	rules   []rule.Rule
	denyAll bool
}

// New returns a subpackages check. Config keys: "rules" matched against
// "group:name:version" and "denyAll".
func New(cfg check.Config) (check.Check, error) {
	rules, err := rule.FromJSON(cfg.Get("rules"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	return &Check{rules: rules, denyAll: cfg.Bool("denyAll", false)}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// IdentifySubpackage reports the sub-package if all are denied or if its last
// matching rule denies it.
func (c *Check) IdentifySubpackage(_ context.Context, r violation.Reporter, id, parent packageid.PackageID) error {
	if c.denyAll {
		r.Report(violation.SeverityMajor,
			fmt.Sprintf("subpackage %s included by %s. no subpackages are allowed.", id, parent), id)
		return nil
	}
	if m, ok := rule.LastMatch(c.rules, id.String()); ok && m.IsDeny() {
		r.Report(violation.SeverityMajor,
			fmt.Sprintf("subpackage %s included by %s matches deny pattern %s", id, parent, m.Pattern), id)
	}
	return nil
}
