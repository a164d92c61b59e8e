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

package jcrinstaller_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/jcrinstaller"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

var pkg = packageid.New("g", "a", "1")

func TestImportedPath(t *testing.T) {
	repoInit := installable.RepoInitPID + "~x.cfg.json"
	testCases := []struct {
		desc      string
		config    string
		runModes  runmode.Set
		node      *session.Node
		wantPaths []string
		wantViol  int
	}{
		{
			desc:      "package in install folder",
			node:      &session.Node{Path: "/apps/x/install/emb.zip", Data: []byte("zip")},
			wantPaths: []string{"/apps/x/install/emb.zip"},
		},
		{
			desc:      "repo-init config with active run mode",
			runModes:  runmode.New("author"),
			node:      &session.Node{Path: "/apps/x/config.author/" + repoInit, Data: []byte(`{"scripts":["create path /a"]}`)},
			wantPaths: []string{"/apps/x/config.author/" + repoInit},
		},
		{
			desc:     "inactive run mode",
			runModes: runmode.New("publish"),
			node:     &session.Node{Path: "/apps/x/config.author/" + repoInit, Data: []byte(`{"scripts":["create path /a"]}`)},
		},
		{
			desc: "outside root paths",
			node: &session.Node{Path: "/content/install/emb.zip", Data: []byte("zip")},
		},
		{
			desc:      "custom root paths",
			config:    `{"rootPaths":["/content"]}`,
			node:      &session.Node{Path: "/content/install/emb.zip", Data: []byte("zip")},
			wantPaths: []string{"/content/install/emb.zip"},
		},
		{
			desc: "not an install folder",
			node: &session.Node{Path: "/apps/x/files/emb.zip", Data: []byte("zip")},
		},
		{
			desc:     "malformed config",
			node:     &session.Node{Path: "/apps/x/config/" + repoInit, Data: []byte(`{`)},
			wantViol: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := t.Context()
			c, err := jcrinstaller.New(check.MustConfig(tc.config))
			if err != nil {
				t.Fatalf("New(): %v", err)
			}
			jc := c.(*jcrinstaller.Check)
			sim := installable.NewSimulator(tc.runModes)
			sim.Open(pkg, pkg)
			violations := 0
			r := violation.ReporterFunc(func(violation.Severity, string, ...packageid.PackageID) { violations++ })

			if err := jc.SimulateSling(ctx, r, sim, tc.runModes); err != nil {
				t.Fatal(err)
			}
			if err := jc.ImportedPath(ctx, r, pkg, tc.node.Path, tc.node, session.ActionAdded); err != nil {
				t.Fatalf("ImportedPath(): %v", err)
			}

			var got []string
			err = sim.Drain(ctx, func(_ context.Context, inst *installable.Installable) error {
				got = append(got, inst.Path)
				return nil
			})
			if err != nil {
				t.Fatalf("Drain(): %v", err)
			}
			if diff := cmp.Diff(tc.wantPaths, got); diff != "" {
				t.Errorf("submitted installables (-want +got):\n%s", diff)
			}
			if violations != tc.wantViol {
				t.Errorf("reported %d violations, want %d", violations, tc.wantViol)
			}
		})
	}
}
