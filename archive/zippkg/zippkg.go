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

// Package zippkg reads content packages stored as zip files with a jcr_root
// content tree and a META-INF/vault metadata directory.
package zippkg

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/packcheck/archive"
	packfs "github.com/google/packcheck/fs"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
)

const (
	contentRoot    = "jcr_root/"
	metaInfRoot    = "META-INF/"
	propertiesPath = "META-INF/vault/properties.xml"
	filterPath     = "META-INF/vault/filter.xml"
	manifestPath   = "META-INF/MANIFEST.MF"
	contentXML     = ".content.xml"
	packagesRoot   = "/etc/packages/"

	fileType   = "nt:file"
	folderType = "nt:folder"
)

// Provider opens zip packages from a package root directory.
type Provider struct {
	root *packfs.Root
}

// New returns a Provider resolving file references against root.
func New(root *packfs.Root) *Provider {
	return &Provider{root: root}
}

// Open implements archive.Provider.
func (p *Provider) Open(ctx context.Context, ref string) (archive.Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.root.ReadFile(ref)
	if err != nil {
		return nil, &archive.OpenError{Ref: ref, Err: err}
	}
	return p.OpenBytes(ctx, ref, data)
}

// OpenBytes implements archive.Provider.
func (p *Provider) OpenBytes(ctx context.Context, ref string, data []byte) (archive.Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := Parse(ref, data)
	if err != nil {
		var openErr *archive.OpenError
		if errors.As(err, &openErr) {
			return nil, err
		}
		return nil, &archive.OpenError{Ref: ref, Err: err}
	}
	return a, nil
}

// Archive is a parsed zip package. All content is held in memory.
type Archive struct {
	ref         string
	id          packageid.PackageID
	metaInf     *archive.MetaInf
	manifest    []byte
	hasManifest bool
	entries     []archive.Entry
	subpackages []archive.Subpackage
}

// Parse reads a zip package from data. properties.xml is read first, so
// failures in the rest of the package carry the package identity.
func Parse(ref string, data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip.NewReader(): %w", err)
	}
	a := &Archive{ref: ref, metaInf: &archive.MetaInf{Properties: archive.Properties{}}}
	for _, f := range zr.File {
		if f.Name == propertiesPath {
			if err := a.readMetaInf(f); err != nil {
				return nil, err
			}
		}
	}
	a.id, err = a.metaInf.Properties.PackageID()
	if err != nil {
		return nil, &archive.OpenError{Ref: ref, Err: err}
	}
	if err := a.readFiles(zr); err != nil {
		return nil, &archive.OpenError{Ref: ref, ID: a.id, Err: err}
	}
	if a.metaInf.Filter == nil {
		a.metaInf.Filter = &archive.WorkspaceFilter{}
	}
	return a, nil
}

func (a *Archive) readFiles(zr *zip.Reader) error {
	index := map[string]int{}
	addEntry := func(e archive.Entry) {
		if i, ok := index[e.Path]; ok {
			a.entries[i] = mergeEntry(a.entries[i], e)
			return
		}
		index[e.Path] = len(a.entries)
		a.entries = append(a.entries, e)
	}

	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, metaInfRoot):
			a.metaInf.Files = append(a.metaInf.Files, f.Name)
			if f.Name == propertiesPath {
				continue
			}
			if err := a.readMetaInf(f); err != nil {
				return err
			}
		case strings.HasPrefix(f.Name, contentRoot):
			e, ok, err := readContent(f)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			addEntry(e)
			if strings.HasPrefix(e.Path, packagesRoot) && strings.HasSuffix(e.Path, ".zip") {
				a.subpackages = append(a.subpackages, archive.Subpackage{Path: e.Path, Data: e.Data})
			}
		}
	}
	return nil
}

func (a *Archive) readMetaInf(f *zip.File) error {
	if strings.HasSuffix(f.Name, "/") {
		return nil
	}
	switch f.Name {
	case propertiesPath:
		b, err := readAll(f)
		if err != nil {
			return err
		}
		props, err := parseProperties(b)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		a.metaInf.Properties = props
	case filterPath:
		b, err := readAll(f)
		if err != nil {
			return err
		}
		filter, err := parseFilter(b)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		a.metaInf.Filter = filter
	case manifestPath:
		b, err := readAll(f)
		if err != nil {
			return err
		}
		a.manifest = b
		a.hasManifest = true
	}
	return nil
}

// readContent converts one jcr_root file into an entry. ok is false for files
// that carry no repository item.
func readContent(f *zip.File) (e archive.Entry, ok bool, err error) {
	rel := strings.TrimPrefix(f.Name, contentRoot)
	if rel == "" {
		return archive.Entry{}, false, nil
	}
	if strings.HasSuffix(rel, "/") {
		return archive.Entry{Path: RepositoryPath(rel), PrimaryType: folderType}, true, nil
	}
	b, err := readAll(f)
	if err != nil {
		return archive.Entry{}, false, err
	}
	if path.Base(rel) == contentXML {
		primaryType, props, err := parseContentXML(b)
		if err != nil {
			return archive.Entry{}, false, fmt.Errorf("%s: %w", f.Name, err)
		}
		return archive.Entry{Path: RepositoryPath(path.Dir(rel)), PrimaryType: primaryType, Properties: props}, true, nil
	}
	return archive.Entry{Path: RepositoryPath(rel), PrimaryType: fileType, Data: b}, true, nil
}

func mergeEntry(old, e archive.Entry) archive.Entry {
	if e.PrimaryType != "" && e.PrimaryType != folderType {
		old.PrimaryType = e.PrimaryType
	}
	if len(e.Properties) > 0 {
		if old.Properties == nil {
			old.Properties = map[string]string{}
		}
		for k, v := range e.Properties {
			old.Properties[k] = v
		}
	}
	if e.Data != nil {
		old.Data = e.Data
	}
	return old
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return b, nil
}

// RepositoryPath converts a path relative to jcr_root into a repository path,
// decoding escaped namespace prefixes ("_jcr_content" becomes "jcr:content").
func RepositoryPath(rel string) string {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "/"
	}
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = decodeName(s)
	}
	return session.Clean("/" + strings.Join(segments, "/"))
}

func decodeName(name string) string {
	if len(name) < 3 || name[0] != '_' {
		return name
	}
	end := strings.IndexByte(name[1:], '_')
	if end <= 0 || end+2 >= len(name) {
		return name
	}
	prefix := name[1 : end+1]
	for _, r := range prefix {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return name
		}
	}
	return prefix + ":" + name[end+2:]
}

// ID implements archive.Archive.
func (a *Archive) ID() packageid.PackageID { return a.id }

// Ref implements archive.Archive.
func (a *Archive) Ref() string { return a.ref }

// Properties implements archive.Archive.
func (a *Archive) Properties() archive.Properties { return a.metaInf.Properties }

// MetaInf implements archive.Archive.
func (a *Archive) MetaInf() *archive.MetaInf { return a.metaInf }

// Manifest implements archive.Archive.
func (a *Archive) Manifest() (archive.Manifest, error) {
	if !a.hasManifest {
		return nil, archive.ErrNoManifest
	}
	return parseManifest(a.manifest)
}

// Entries implements archive.Archive.
func (a *Archive) Entries() []archive.Entry { return a.entries }

// Subpackages implements archive.Archive.
func (a *Archive) Subpackages() []archive.Subpackage { return a.subpackages }

// Close implements archive.Archive.
func (a *Archive) Close() error {
	a.entries = nil
	a.subpackages = nil
	return nil
}
