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

// Package runmode models the simulated environment labels ("run modes") that
// condition which installables apply during a scan.
package runmode

import (
	"strings"

	"bitbucket.org/creachadair/stringset"
)

// Set is an immutable set of run modes. The zero value is the empty set.
type Set struct {
	modes stringset.Set
}

// New returns the set of the given modes. Blank modes are ignored.
func New(modes ...string) Set {
	s := stringset.New()
	for _, m := range modes {
		if m = strings.TrimSpace(m); m != "" {
			s.Add(m)
		}
	}
	return Set{modes: s}
}

// Parse splits a comma separated list of run modes.
func Parse(list string) Set {
	return New(strings.Split(list, ",")...)
}

// Contains reports whether mode is active.
func (s Set) Contains(mode string) bool {
	return s.modes != nil && s.modes.Contains(mode)
}

// ContainsAll reports whether every one of modes is active.
func (s Set) ContainsAll(modes ...string) bool {
	for _, m := range modes {
		if !s.Contains(m) {
			return false
		}
	}
	return true
}

// Len returns the number of active modes.
func (s Set) Len() int {
	return s.modes.Len()
}

// Elements returns the active modes in sorted order.
func (s Set) Elements() []string {
	if s.modes == nil {
		return []string{}
	}
	return s.modes.Elements()
}

func (s Set) String() string {
	return strings.Join(s.Elements(), ",")
}

// FolderModes splits an install folder name like "config.author.dev" into its
// base name ("config") and the run modes it requires ("author", "dev").
func FolderModes(folder string) (base string, modes []string) {
	parts := strings.Split(folder, ".")
	return parts[0], parts[1:]
}

// Accepts reports whether the run modes required by an install folder name
// are all active. Folders without a run-mode suffix are always accepted.
func (s Set) Accepts(folder string) bool {
	_, modes := FolderModes(folder)
	return s.ContainsAll(modes...)
}
