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

package archive_test

import (
	"errors"
	"testing"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/packageid"
)

func mustRule(t *testing.T, include bool, pattern string) archive.FilterRule {
	t.Helper()
	r, err := archive.NewFilterRule(include, pattern)
	if err != nil {
		t.Fatalf("NewFilterRule(%q): %v", pattern, err)
	}
	return r
}

func TestFilterSetContains(t *testing.T) {
	testCases := []struct {
		desc  string
		set   archive.FilterSet
		paths map[string]bool
	}{
		{
			desc: "no rules",
			set:  archive.FilterSet{Root: "/apps/foo"},
			paths: map[string]bool{
				"/apps/foo":     true,
				"/apps/foo/bar": true,
				"/apps/foobar":  false,
				"/apps":         false,
			},
		},
		{
			desc: "exclude first includes by default",
			set: archive.FilterSet{Root: "/apps/foo", Rules: []archive.FilterRule{
				mustRule(t, false, "/apps/foo/secret(/.*)?"),
			}},
			paths: map[string]bool{
				"/apps/foo/bar":        true,
				"/apps/foo/secret":     false,
				"/apps/foo/secret/key": false,
			},
		},
		{
			desc: "include first excludes by default, last match wins",
			set: archive.FilterSet{Root: "/apps", Rules: []archive.FilterRule{
				mustRule(t, true, "/apps/foo(/.*)?"),
				mustRule(t, false, "/apps/foo/tmp(/.*)?"),
				mustRule(t, true, "/apps/foo/tmp/keep"),
			}},
			paths: map[string]bool{
				"/apps/bar":          false,
				"/apps/foo/x":        true,
				"/apps/foo/tmp/x":    false,
				"/apps/foo/tmp/keep": true,
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			for p, want := range tc.paths {
				if got := tc.set.Contains(p); got != want {
					t.Errorf("Contains(%q) = %v, want %v", p, got, want)
				}
			}
		})
	}
}

func TestWorkspaceFilter(t *testing.T) {
	w := &archive.WorkspaceFilter{Sets: []archive.FilterSet{
		{Root: "/apps/a"},
		{Root: "/conf/a", ImportMode: "merge"},
	}}
	if !w.Contains("/conf/a/x") || w.Contains("/content") {
		t.Error("WorkspaceFilter.Contains() gave unexpected results")
	}
	set, ok := w.CoveringSet("/conf/a/x")
	if !ok || set.Replaces() {
		t.Errorf("CoveringSet(/conf/a/x) = %+v, %v, want the merge set", set, ok)
	}
	var nilFilter *archive.WorkspaceFilter
	if nilFilter.Contains("/apps/a") {
		t.Error("nil filter contains /apps/a")
	}
}

func TestPropertiesPackageID(t *testing.T) {
	props := archive.Properties{"group": "g", "name": "n", "version": "1"}
	id, err := props.PackageID()
	if err != nil || id != packageid.New("g", "n", "1") {
		t.Errorf("PackageID() = %v, %v", id, err)
	}
	if _, err := (archive.Properties{"group": "g"}).PackageID(); !errors.Is(err, archive.ErrNoPackageID) {
		t.Errorf("PackageID() without name error = %v, want %v", err, archive.ErrNoPackageID)
	}
}
