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

// Package jcrinstaller implements a check that mimics the Sling JCR installer:
// package files and repository initializer configurations imported into
// install or config folders are submitted to the installable simulator.
package jcrinstaller

import (
	"context"
	"fmt"
	"path"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "slingJcrInstaller"

var defaultRootPaths = []string{"/apps", "/libs"}

// Check submits installables found under the configured root paths.
type Check struct {
	rootPaths []string
	sim       installable.Submitter
	runModes  runmode.Set
}

// New returns an installer check. Config key: "rootPaths", "/apps" and
// "/libs" by default.
func New(cfg check.Config) (check.Check, error) {
	roots := defaultRootPaths
	if cfg.Has("rootPaths") {
		roots = cfg.Strings("rootPaths")
	}
	return &Check{rootPaths: roots}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// SimulateSling keeps the simulator and the active run modes.
func (c *Check) SimulateSling(_ context.Context, _ violation.Reporter, sim installable.Submitter, runModes runmode.Set) error {
	c.sim = sim
	c.runModes = runModes
	return nil
}

func (c *Check) underRoot(p string) bool {
	for _, root := range c.rootPaths {
		if session.IsDescendant(p, root) {
			return true
		}
	}
	return false
}

// isInstallFolder reports whether folder is an install or config folder whose
// run modes are all active, e.g. "/apps/x/config.author".
func (c *Check) isInstallFolder(folder string) bool {
	base, _ := runmode.FolderModes(path.Base(folder))
	if base != "install" && base != "config" {
		return false
	}
	return c.runModes.Accepts(path.Base(folder))
}

// ImportedPath submits the node if it is installable.
func (c *Check) ImportedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, p string,
	node *session.Node, _ session.PathAction) error {
	if c.sim == nil || node == nil {
		return nil
	}
	if session.IsDescendant(p, "/etc/packages") || !c.underRoot(p) {
		return nil
	}
	if !c.isInstallFolder(session.ParentPath(p)) {
		return nil
	}
	inst, err := c.sim.Prepare(id, node)
	if err != nil {
		r.Report(violation.SeverityMajor, fmt.Sprintf("failed to read installable %s: %v", p, err), id)
		return nil
	}
	if inst == nil {
		return nil
	}
	if err := c.sim.Submit(inst); err != nil {
		log.Warnf("rejected installable %s: %v", p, err)
		r.Report(violation.SeverityMajor, fmt.Sprintf("rejected installable %s: %v", p, err), id)
	}
	return nil
}
