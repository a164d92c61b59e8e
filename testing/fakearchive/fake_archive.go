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

// Package fakearchive provides in-memory archive.Archive and archive.Provider
// implementations to be used in tests.
package fakearchive

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
)

// Archive is a scripted archive. Its fields can be set directly.
type Archive struct {
	Pkg          packageid.PackageID
	Location     string
	Meta         *archive.MetaInf
	ManifestData archive.Manifest
	// ManifestErr is returned by Manifest. Leave nil and ManifestData nil for
	// a package without manifest.
	ManifestErr error
	Content     []archive.Entry
	Subs        []archive.Subpackage

	mu     sync.Mutex
	closed bool
}

// New returns an archive for id whose filter has one set per root and whose
// content is one folder per path, in the given order.
func New(id packageid.PackageID, roots []string, paths ...string) *Archive {
	filter := &archive.WorkspaceFilter{}
	for _, r := range roots {
		filter.Sets = append(filter.Sets, archive.FilterSet{Root: r})
	}
	a := &Archive{
		Pkg: id,
		Meta: &archive.MetaInf{
			Filter: filter,
			Properties: archive.Properties{
				archive.PropGroup:   id.Group,
				archive.PropName:    id.Name,
				archive.PropVersion: id.Version,
			},
		},
	}
	for _, p := range paths {
		a.Content = append(a.Content, archive.Entry{Path: p, PrimaryType: session.FolderType})
	}
	return a
}

// WithFile appends a file entry.
func (a *Archive) WithFile(path string, data []byte) *Archive {
	a.Content = append(a.Content, archive.Entry{Path: path, PrimaryType: "nt:file", Data: data})
	return a
}

// WithEntry appends an entry.
func (a *Archive) WithEntry(e archive.Entry) *Archive {
	a.Content = append(a.Content, e)
	return a
}

// WithSubpackage appends a nested package file. data is the key the nested
// archive is registered under with Provider.AddBytes.
func (a *Archive) WithSubpackage(path string, data []byte) *Archive {
	a.Subs = append(a.Subs, archive.Subpackage{Path: path, Data: data})
	return a
}

// WithManifest sets the manifest.
func (a *Archive) WithManifest(m archive.Manifest) *Archive {
	a.ManifestData = m
	return a
}

// ID implements archive.Archive.
func (a *Archive) ID() packageid.PackageID { return a.Pkg }

// Ref implements archive.Archive.
func (a *Archive) Ref() string { return a.Location }

// Properties implements archive.Archive.
func (a *Archive) Properties() archive.Properties {
	if a.Meta == nil {
		return nil
	}
	return a.Meta.Properties
}

// MetaInf implements archive.Archive.
func (a *Archive) MetaInf() *archive.MetaInf {
	if a.Meta == nil {
		return &archive.MetaInf{}
	}
	return a.Meta
}

// Manifest implements archive.Archive.
func (a *Archive) Manifest() (archive.Manifest, error) {
	if a.ManifestErr != nil {
		return nil, a.ManifestErr
	}
	if a.ManifestData == nil {
		return nil, archive.ErrNoManifest
	}
	return a.ManifestData, nil
}

// Entries implements archive.Archive.
func (a *Archive) Entries() []archive.Entry { return a.Content }

// Subpackages implements archive.Archive.
func (a *Archive) Subpackages() []archive.Subpackage { return a.Subs }

// Close implements archive.Archive.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called.
func (a *Archive) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Provider serves registered archives by reference or by content.
type Provider struct {
	mu       sync.Mutex
	byRef    map[string]*Archive
	byData   map[string]*Archive
	failures map[string]*archive.OpenError
	opened   []string
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{
		byRef:    make(map[string]*Archive),
		byData:   make(map[string]*Archive),
		failures: make(map[string]*archive.OpenError),
	}
}

// Add registers a to be returned by Open(ref).
func (p *Provider) Add(ref string, a *Archive) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	a.Location = ref
	p.byRef[ref] = a
	return p
}

// AddBytes registers a to be returned by OpenBytes for data.
func (p *Provider) AddBytes(data []byte, a *Archive) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byData[string(data)] = a
	return p
}

// Fail makes Open(ref) fail with err. id is the identity the failure
// reports, if it was readable.
func (p *Provider) Fail(ref string, id packageid.PackageID, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[ref] = &archive.OpenError{Ref: ref, ID: id, Err: err}
	return p
}

// Opened returns the references passed to Open and OpenBytes, in call order.
func (p *Provider) Opened() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.opened...)
}

// Open implements archive.Provider.
func (p *Provider) Open(_ context.Context, ref string) (archive.Archive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, ref)
	if err, ok := p.failures[ref]; ok {
		return nil, err
	}
	a, ok := p.byRef[ref]
	if !ok {
		return nil, &archive.OpenError{Ref: ref, Err: fs.ErrNotExist}
	}
	return a, nil
}

// OpenBytes implements archive.Provider.
func (p *Provider) OpenBytes(_ context.Context, ref string, data []byte) (archive.Archive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, ref)
	a, ok := p.byData[string(data)]
	if !ok {
		return nil, &archive.OpenError{Ref: ref, Err: fmt.Errorf("no archive registered for %d bytes", len(data))}
	}
	a.Location = ref
	return a, nil
}
