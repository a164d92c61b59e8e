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

// Package fs provides the virtual filesystem package files are read from and
// related helper functions.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FS is a filesystem interface that allows the opening of files, reading of
// directories, and performing stat on files.
//
// FS implementations MUST implement io.ReaderAt for opened files to enable random access.
type FS interface {
	fs.FS
	fs.ReadDirFS
	fs.StatFS
}

// Root is a directory package files are resolved against.
type Root struct {
	// A virtual filesystem for file access, rooted at the root directory.
	FS FS
	// The path of the root on the host. Empty for purely virtual filesystems.
	Path string
}

// IsVirtual returns true if the root has no real location on the host disk.
func (r *Root) IsVirtual() bool {
	return r.Path == ""
}

// DirFS returns an FS implementation that accesses the real filesystem at the given root.
func DirFS(root string) FS {
	return os.DirFS(root).(FS)
}

// RealRoot returns a Root for the given directory on the host filesystem.
func RealRoot(dir string) *Root {
	return &Root{FS: DirFS(dir), Path: dir}
}

// Rel converts a package file reference into a path relative to the root.
// Absolute host paths below r.Path are made relative; other references are
// cleaned and used as they are.
func (r *Root) Rel(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		if r.IsVirtual() {
			return "", fmt.Errorf("absolute path %q can't be resolved against a virtual root", ref)
		}
		rel, err := filepath.Rel(r.Path, ref)
		if err != nil {
			return "", err
		}
		ref = rel
	}
	ref = path.Clean(filepath.ToSlash(ref))
	if ref == ".." || strings.HasPrefix(ref, "../") {
		return "", fmt.Errorf("%q escapes the package root", ref)
	}
	return ref, nil
}

// ReadFile reads the package file at ref.
func (r *Root) ReadFile(ref string) ([]byte, error) {
	rel, err := r.Rel(ref)
	if err != nil {
		return nil, err
	}
	info, err := fs.Stat(r.FS, rel)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", ref)
	}
	return fs.ReadFile(r.FS, rel)
}
