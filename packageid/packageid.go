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

// Package packageid defines the identity of a content package.
package packageid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when a package ID can't be parsed.
var ErrInvalid = errors.New("invalid package id")

// PackageID identifies one content package by its group, name and version.
// It is a comparable value type and can be used as a map key.
type PackageID struct {
	Group   string
	Name    string
	Version string
}

// New returns the package ID for the given coordinates.
func New(group, name, version string) PackageID {
	return PackageID{Group: group, Name: name, Version: version}
}

// Parse parses the "group:name:version" form returned by String. The version
// segment is optional.
func Parse(s string) (PackageID, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 2 && parts[1] != "":
		return PackageID{Group: parts[0], Name: parts[1]}, nil
	case len(parts) == 3 && parts[1] != "":
		return PackageID{Group: parts[0], Name: parts[1], Version: parts[2]}, nil
	default:
		return PackageID{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
}

// MustParse is like Parse but panics on malformed input. Meant for tests and
// static tables.
func MustParse(s string) PackageID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the "group:name:version" form.
func (p PackageID) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Group + ":" + p.Name + ":" + p.Version
}

// IsZero reports whether p is the zero ID.
func (p PackageID) IsZero() bool {
	return p == PackageID{}
}

// InstallationPath returns the repository path a package file with this ID is
// stored at once installed, e.g. /etc/packages/my_group/my-pack-1.0.zip.
func (p PackageID) InstallationPath() string {
	var b strings.Builder
	b.WriteString("/etc/packages/")
	if p.Group != "" {
		b.WriteString(p.Group)
		b.WriteString("/")
	}
	b.WriteString(p.Name)
	if p.Version != "" {
		b.WriteString("-")
		b.WriteString(p.Version)
	}
	b.WriteString(".zip")
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p PackageID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PackageID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = PackageID{}
		return nil
	}
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// Strings returns the string forms of ids.
func Strings(ids []PackageID) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.String())
	}
	return result
}
