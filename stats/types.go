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

package stats

import "time"

// PackageKind is how a package was reached during a scan.
type PackageKind string

const (
	// PackageKindScanTarget is a package explicitly requested for scanning.
	PackageKindScanTarget PackageKind = "PACKAGE_KIND_SCAN_TARGET"
	// PackageKindPreInstall is a package installed silently before the scan.
	PackageKindPreInstall PackageKind = "PACKAGE_KIND_PRE_INSTALL"
	// PackageKindSubpackage is a package nested in another package's content.
	PackageKindSubpackage PackageKind = "PACKAGE_KIND_SUBPACKAGE"
	// PackageKindEmbedded is a package installed through an installable.
	PackageKindEmbedded PackageKind = "PACKAGE_KIND_EMBEDDED"
)

// PackageStats is a struct containing stats about one processed package.
type PackageStats struct {
	ID      string
	Kind    PackageKind
	Depth   int
	Runtime time.Duration
	// Paths is the number of importedPath and deletedPath events dispatched.
	Paths int
	Error error
}

// InstallableResult is a string representation of the outcome of processing
// an installable.
type InstallableResult string

const (
	// InstallableResultApplied indicates that the installable was processed.
	InstallableResultApplied InstallableResult = "INSTALLABLE_RESULT_APPLIED"

	// InstallableResultOpenFailed indicates that an embedded package couldn't
	// be opened.
	InstallableResultOpenFailed InstallableResult = "INSTALLABLE_RESULT_OPEN_FAILED"

	// InstallableResultScriptFailed indicates that repository initialization
	// scripts couldn't be parsed.
	InstallableResultScriptFailed InstallableResult = "INSTALLABLE_RESULT_SCRIPT_FAILED"
)

// InstallableStats is a struct containing stats about one processed installable.
type InstallableStats struct {
	Path   string
	Kind   string
	Result InstallableResult
}
