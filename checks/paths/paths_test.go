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

package paths_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/paths"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

var pkg = packageid.New("g", "a", "1")

func TestPaths(t *testing.T) {
	testCases := []struct {
		desc     string
		config   string
		imported []string
		deleted  []string
		want     []string
	}{
		{
			desc:     "deny then allow",
			config:   `{"rules":[{"type":"deny","pattern":"/etc/.*"},{"type":"allow","pattern":"/etc/ok"}]}`,
			imported: []string{"/etc/bad", "/etc/ok", "/apps/x"},
			deleted:  []string{"/etc/gone"},
			want: []string{
				"MAJOR imported path /etc/bad matches deny pattern /etc/.*",
				"MAJOR deleted path /etc/gone matches deny rule /etc/.*",
			},
		},
		{
			desc:    "deny all deletes",
			config:  `{"denyAllDeletes": true, "severity": "severe"}`,
			deleted: []string{"/apps/x"},
			want:    []string{"SEVERE deleted path /apps/x. All deletions are denied."},
		},
		{
			desc:     "no rules",
			config:   `{}`,
			imported: []string{"/apps/x"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c, err := paths.New(check.MustConfig(tc.config))
			if err != nil {
				t.Fatalf("New(): %v", err)
			}
			var got []string
			r := violation.ReporterFunc(func(sev violation.Severity, desc string, pkgs ...packageid.PackageID) {
				got = append(got, sev.String()+" "+desc)
			})
			pc := c.(*paths.Check)
			for _, p := range tc.imported {
				if err := pc.ImportedPath(t.Context(), r, pkg, p, &session.Node{Path: p}, session.ActionAdded); err != nil {
					t.Fatalf("ImportedPath(): %v", err)
				}
			}
			for _, p := range tc.deleted {
				if err := pc.DeletedPath(t.Context(), r, pkg, p, nil); err != nil {
					t.Fatalf("DeletedPath(): %v", err)
				}
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("reported violations (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := paths.New(check.MustConfig(`{"severity":"fatal"}`)); err == nil {
		t.Error("New() with an unknown severity succeeded, want error")
	}
}
