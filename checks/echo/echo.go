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

// Package echo implements a check that logs every lifecycle event it
// receives. It never reports violations.
package echo

import (
	"context"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "echo"

// Check logs events.
type Check struct {
	printf func(format string, args ...any)
}

// New returns an echo check writing to the info log.
func New(check.Config) (check.Check, error) {
	return &Check{printf: log.Infof}, nil
}

// NewWithPrinter returns an echo check writing through printf.
func NewWithPrinter(printf func(format string, args ...any)) *Check {
	return &Check{printf: printf}
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// SimulateSling implements check.SlingSimulatorHandler.
func (c *Check) SimulateSling(_ context.Context, _ violation.Reporter, _ installable.Submitter, runModes runmode.Set) error {
	c.printf("simulateSling(runModes: [%s])", runModes)
	return nil
}

// StartedScan implements check.StartedScanHandler.
func (c *Check) StartedScan(context.Context, violation.Reporter) error {
	c.printf("startedScan()")
	return nil
}

// IdentifyPackage implements check.IdentifyPackageHandler.
func (c *Check) IdentifyPackage(_ context.Context, _ violation.Reporter, id packageid.PackageID, file string) error {
	c.printf("identifyPackage(packageId: %s, file: %s)", id, file)
	return nil
}

// IdentifySubpackage implements check.IdentifySubpackageHandler.
func (c *Check) IdentifySubpackage(_ context.Context, _ violation.Reporter, id, parent packageid.PackageID) error {
	c.printf("identifySubpackage(packageId: %s, parentId: %s)", id, parent)
	return nil
}

// ReadManifest implements check.ReadManifestHandler.
func (c *Check) ReadManifest(_ context.Context, _ violation.Reporter, id packageid.PackageID, m archive.Manifest) error {
	c.printf("readManifest(packageId: %s, entries: %d)", id, len(m))
	return nil
}

// BeforeExtract implements check.BeforeExtractHandler.
func (c *Check) BeforeExtract(_ context.Context, _ violation.Reporter, id packageid.PackageID, _ session.Reader,
	_ archive.Properties, _ *archive.MetaInf, subpackages []packageid.PackageID) error {
	c.printf("beforeExtract(packageId: %s, subpackages: %v)", id, packageid.Strings(subpackages))
	return nil
}

// ImportedPath implements check.ImportedPathHandler.
func (c *Check) ImportedPath(_ context.Context, _ violation.Reporter, id packageid.PackageID, path string,
	_ *session.Node, action session.PathAction) error {
	c.printf("importedPath(packageId: %s, path: %s, action: %s)", id, path, action)
	return nil
}

// DeletedPath implements check.DeletedPathHandler.
func (c *Check) DeletedPath(_ context.Context, _ violation.Reporter, id packageid.PackageID, path string, _ session.Reader) error {
	c.printf("deletedPath(packageId: %s, path: %s)", id, path)
	return nil
}

// AfterExtract implements check.AfterExtractHandler.
func (c *Check) AfterExtract(_ context.Context, _ violation.Reporter, id packageid.PackageID, _ session.Reader) error {
	c.printf("afterExtract(packageId: %s)", id)
	return nil
}

// BeforeSlingInstall implements check.BeforeSlingInstallHandler.
func (c *Check) BeforeSlingInstall(_ context.Context, _ violation.Reporter, scanPackage packageid.PackageID,
	inst *installable.Installable, _ session.Reader) error {
	c.printf("beforeSlingInstall(scanPackageId: %s, installable: %s)", scanPackage, inst)
	return nil
}

// IdentifyEmbeddedPackage implements check.IdentifyEmbeddedPackageHandler.
func (c *Check) IdentifyEmbeddedPackage(_ context.Context, _ violation.Reporter, id, parent packageid.PackageID,
	inst *installable.Installable) error {
	c.printf("identifyEmbeddedPackage(packageId: %s, parentId: %s, path: %s)", id, parent, inst.Path)
	return nil
}

// AppliedRepoInitScripts implements check.AppliedRepoInitScriptsHandler.
func (c *Check) AppliedRepoInitScripts(_ context.Context, _ violation.Reporter, scanPackage packageid.PackageID,
	scripts []string, inst *installable.Installable, _ session.Reader) error {
	c.printf("appliedRepoInitScripts(scanPackageId: %s, scripts: %d, path: %s)", scanPackage, len(scripts), inst.Path)
	return nil
}

// AfterScanPackage implements check.AfterScanPackageHandler.
func (c *Check) AfterScanPackage(_ context.Context, _ violation.Reporter, scanPackage packageid.PackageID, _ session.Reader) error {
	c.printf("afterScanPackage(scanPackageId: %s)", scanPackage)
	return nil
}

// FinishedScan implements check.FinishedScanHandler.
func (c *Check) FinishedScan(context.Context, violation.Reporter) error {
	c.printf("finishedScan()")
	return nil
}
