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

// Package archive defines how the scan engine reads content packages: their
// identity, metadata, content entries and nested sub-packages.
package archive

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
)

var (
	// ErrNoManifest is returned by Archive.Manifest when the package carries no
	// manifest. It is not a fault.
	ErrNoManifest = errors.New("package has no manifest")
	// ErrNoPackageID is returned when the package properties lack a name.
	ErrNoPackageID = errors.New("package properties don't identify the package")
)

// OpenError is returned when a package file can't be opened or read.
type OpenError struct {
	// Ref is the file reference or repository path the package was opened from.
	Ref string
	// ID is the package identity, if it could be read before the failure.
	ID  packageid.PackageID
	Err error
}

func (e *OpenError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("failed to open package %s: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("failed to open package %s (%s): %v", e.ID, e.Ref, e.Err)
}

// Unwrap returns the wrapped error.
func (e *OpenError) Unwrap() error { return e.Err }

// Manifest holds the main attributes of META-INF/MANIFEST.MF.
type Manifest map[string]string

// Properties holds the entries of META-INF/vault/properties.xml.
type Properties map[string]string

// Well-known property keys.
const (
	PropGroup       = "group"
	PropName        = "name"
	PropVersion     = "version"
	PropDescription = "description"
)

// PackageID returns the identity described by the properties.
func (p Properties) PackageID() (packageid.PackageID, error) {
	if p[PropName] == "" {
		return packageid.PackageID{}, ErrNoPackageID
	}
	return packageid.New(p[PropGroup], p[PropName], p[PropVersion]), nil
}

// MetaInf is the package metadata found under META-INF.
type MetaInf struct {
	Filter     *WorkspaceFilter
	Properties Properties
	// Files lists every META-INF entry in archive order.
	Files []string
}

// Entry is one repository item carried by a package, addressed by its
// repository path.
type Entry struct {
	Path        string
	PrimaryType string
	Properties  map[string]string
	Data        []byte
}

// Node returns the session node the entry imports as.
func (e Entry) Node() *session.Node {
	n := &session.Node{
		Path:        e.Path,
		PrimaryType: e.PrimaryType,
		Properties:  maps.Clone(e.Properties),
	}
	if e.Data != nil {
		n.Data = append([]byte(nil), e.Data...)
	}
	return n
}

// Subpackage is a package file nested in another package.
type Subpackage struct {
	// Path is the repository path the nested package file is imported at.
	Path string
	Data []byte
}

// Archive is one opened content package.
type Archive interface {
	ID() packageid.PackageID
	// Ref is the reference the archive was opened from.
	Ref() string
	Properties() Properties
	MetaInf() *MetaInf
	// Manifest returns ErrNoManifest when the package has none. Any other
	// error means the manifest is present but unreadable.
	Manifest() (Manifest, error)
	// Entries returns the content entries in archive order.
	Entries() []Entry
	// Subpackages returns the nested package files in archive order.
	Subpackages() []Subpackage
	Close() error
}

// Provider opens archives. Implementations must be safe for concurrent use so
// that package files can be prefetched.
type Provider interface {
	// Open opens the package file at ref.
	Open(ctx context.Context, ref string) (Archive, error)
	// OpenBytes opens a package file already read into memory, e.g. a
	// sub-package or an embedded package.
	OpenBytes(ctx context.Context, ref string, data []byte) (Archive, error)
}
