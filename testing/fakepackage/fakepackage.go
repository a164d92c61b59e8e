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

// Package fakepackage builds zip content packages for tests.
package fakepackage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/packcheck/packageid"
)

// File is one file under jcr_root, addressed by its path relative to jcr_root.
type File struct {
	Path string
	Data string
}

// Package describes a package to build.
type Package struct {
	ID packageid.PackageID
	// Filter roots, written to META-INF/vault/filter.xml in order.
	Filter []string
	// FilterXML overrides the generated filter.xml when set.
	FilterXML string
	// Manifest is written verbatim to META-INF/MANIFEST.MF when set.
	Manifest string
	Files    []File
	// Subpackages are built recursively and stored under
	// jcr_root/etc/packages/<group>/<name>-<version>.zip.
	Subpackages []Package
}

// Build returns the zip bytes of p.
func Build(t *testing.T, p Package) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	write := func(name string, data []byte) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%q): %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("zip write %q: %v", name, err)
		}
	}

	write("META-INF/vault/properties.xml", []byte(properties(p.ID)))
	filter := p.FilterXML
	if filter == "" {
		filter = filterXML(p.Filter)
	}
	write("META-INF/vault/filter.xml", []byte(filter))
	if p.Manifest != "" {
		write("META-INF/MANIFEST.MF", []byte(p.Manifest))
	}
	for _, f := range p.Files {
		write("jcr_root/"+strings.TrimPrefix(f.Path, "/"), []byte(f.Data))
	}
	for _, sub := range p.Subpackages {
		write("jcr_root"+sub.ID.InstallationPath(), Build(t, sub))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close(): %v", err)
	}
	return buf.Bytes()
}

// WriteFile builds p into dir and returns the file path.
func WriteFile(t *testing.T, dir string, p Package) string {
	t.Helper()
	path := filepath.Join(dir, p.ID.Name+".zip")
	if err := os.WriteFile(path, Build(t, p), 0644); err != nil {
		t.Fatalf("os.WriteFile(%q): %v", path, err)
	}
	return path
}

func properties(id packageid.PackageID) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" standalone="no"?>
<!DOCTYPE properties SYSTEM "http://java.sun.com/dtd/properties.dtd">
<properties>
<comment>FileVault Package Properties</comment>
<entry key="group">%s</entry>
<entry key="name">%s</entry>
<entry key="version">%s</entry>
</properties>
`, id.Group, id.Name, id.Version)
}

func filterXML(roots []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<workspaceFilter version="1.0">` + "\n")
	for _, r := range roots {
		fmt.Fprintf(&b, "  <filter root=%q/>\n", r)
	}
	b.WriteString("</workspaceFilter>\n")
	return b.String()
}
