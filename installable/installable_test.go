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

package installable_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
)

var (
	top = packageid.New("g", "top", "1")
	emb = packageid.New("g", "emb", "1")
)

func scripts(path string) *installable.Installable {
	return &installable.Installable{Path: path, Kind: installable.KindRepoInitScripts, Scripts: []string{"create path /x"}}
}

func TestSubmitValidation(t *testing.T) {
	testCases := []struct {
		desc    string
		inst    *installable.Installable
		wantErr error
	}{
		{desc: "nil", inst: nil, wantErr: installable.ErrInvalidInstallable},
		{desc: "unspecified kind", inst: &installable.Installable{Path: "/apps/x"}, wantErr: installable.ErrInvalidInstallable},
		{desc: "unknown kind", inst: &installable.Installable{Path: "/apps/x", Kind: installable.Kind(42)}, wantErr: installable.ErrInvalidInstallable},
		{desc: "no path", inst: &installable.Installable{Kind: installable.KindRepoInitScripts, Scripts: []string{"x"}}, wantErr: installable.ErrInvalidInstallable},
		{desc: "package without data", inst: &installable.Installable{Path: "/apps/x.zip", Kind: installable.KindEmbeddedPackage}, wantErr: installable.ErrInvalidInstallable},
		{desc: "repo-init without scripts", inst: &installable.Installable{Path: "/apps/x", Kind: installable.KindRepoInitScripts}, wantErr: installable.ErrInvalidInstallable},
		{desc: "valid package", inst: &installable.Installable{Path: "/apps/x.zip", Kind: installable.KindEmbeddedPackage, Data: []byte("zip")}},
		{desc: "valid scripts", inst: scripts("/apps/x")},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := installable.NewSimulator(runmode.New("author"))
			s.Open(top, top)
			err := s.Submit(tc.inst)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Errorf("Submit() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSubmitWithoutOpenPackage(t *testing.T) {
	s := installable.NewSimulator(runmode.Set{})
	if err := s.Submit(scripts("/a")); !errors.Is(err, installable.ErrNoOpenPackage) {
		t.Errorf("Submit() error = %v, want %v", err, installable.ErrNoOpenPackage)
	}
}

func TestDrainFIFOAndAttribution(t *testing.T) {
	s := installable.NewSimulator(runmode.New("author"))
	s.Open(top, top)
	for _, p := range []string{"/i1", "/i2", "/i3"} {
		if err := s.Submit(scripts(p)); err != nil {
			t.Fatalf("Submit(%s): %v", p, err)
		}
	}
	if s.State() != installable.StateQueued || s.Pending() != 3 {
		t.Fatalf("State() = %v, Pending() = %d, want QUEUED, 3", s.State(), s.Pending())
	}

	var got []string
	err := s.Drain(t.Context(), func(ctx context.Context, inst *installable.Installable) error {
		if s.State() != installable.StateDispatching {
			t.Errorf("State() during drain = %v, want DISPATCHING", s.State())
		}
		if inst.Parent != top || inst.ScanPackage != top || !inst.RunModes.Contains("author") {
			t.Errorf("installable %s attribution = %v/%v/%v", inst.Path, inst.Parent, inst.ScanPackage, inst.RunModes)
		}
		got = append(got, inst.Path)
		return nil
	})
	if err != nil {
		t.Fatalf("Drain(): %v", err)
	}
	if diff := cmp.Diff([]string{"/i1", "/i2", "/i3"}, got); diff != "" {
		t.Errorf("drain order (-want +got):\n%s", diff)
	}
	if s.State() != installable.StateDrained {
		t.Errorf("State() after drain = %v, want DRAINED", s.State())
	}
	if err := s.Submit(scripts("/late")); !errors.Is(err, installable.ErrQueueDrained) {
		t.Errorf("Submit() after drain error = %v, want %v", err, installable.ErrQueueDrained)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close(): %v", err)
	}
}

func TestDrainDepthFirst(t *testing.T) {
	s := installable.NewSimulator(runmode.Set{})
	s.Open(top, top)
	embedded := &installable.Installable{Path: "/apps/emb.zip", Kind: installable.KindEmbeddedPackage, Data: []byte("zip")}
	if err := s.Submit(embedded); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if err := s.Submit(scripts("/after")); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	var got []string
	var drain func(ctx context.Context, inst *installable.Installable) error
	drain = func(ctx context.Context, inst *installable.Installable) error {
		got = append(got, inst.Path)
		if inst.Kind != installable.KindEmbeddedPackage {
			return nil
		}
		s.Open(emb, inst.ScanPackage)
		if err := s.Submit(scripts("/nested")); err != nil {
			return err
		}
		if err := s.Drain(ctx, drain); err != nil {
			return err
		}
		return s.Close()
	}
	if err := s.Drain(t.Context(), drain); err != nil {
		t.Fatalf("Drain(): %v", err)
	}
	if diff := cmp.Diff([]string{"/apps/emb.zip", "/nested", "/after"}, got); diff != "" {
		t.Errorf("drain order (-want +got):\n%s", diff)
	}
}

func TestCloseUndrained(t *testing.T) {
	s := installable.NewSimulator(runmode.Set{})
	s.Open(top, top)
	if err := s.Submit(scripts("/x")); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if err := s.Close(); !errors.Is(err, installable.ErrUndrained) {
		t.Errorf("Close() error = %v, want %v", err, installable.ErrUndrained)
	}
}

func TestPrepare(t *testing.T) {
	s := installable.NewSimulator(runmode.New("author"))
	s.Open(top, top)
	testCases := []struct {
		desc     string
		node     *session.Node
		wantKind installable.Kind
		wantNil  bool
		scripts  []string
		wantErr  bool
	}{
		{
			desc:     "package file",
			node:     &session.Node{Path: "/apps/x/install/emb.zip", PrimaryType: "nt:file", Data: []byte("zip")},
			wantKind: installable.KindEmbeddedPackage,
		},
		{
			desc:     "osgi config node",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "~x", PrimaryType: installable.OsgiConfigType, Properties: map[string]string{"scripts": "create path /a"}},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /a"},
		},
		{
			desc:     "cfg.json string",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "-y.cfg.json", Data: []byte(`{"scripts": "create path /b"}`)},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /b"},
		},
		{
			desc:     "cfg.json array",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "~z.cfg.json", Data: []byte(`{"scripts": ["create path /c", "", "create path /d"]}`)},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /c", "create path /d"},
		},
		{
			desc:     "felix config array",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "~e.config", Data: []byte("# generated\nscripts=[\"create path /e\",\"create path (sling:Folder) /f\"]\n")},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /e", "create path (sling:Folder) /f"},
		},
		{
			desc:     "felix config typed string",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "-g.config", Data: []byte(`scripts=T"create path /g; create path /h"`)},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /g; create path /h"},
		},
		{
			desc:     "felix config escapes",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + ".config", Data: []byte(`scripts=("create path /q\u0031")`)},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /q1"},
		},
		{
			desc:    "felix config unterminated",
			node:    &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + ".config", Data: []byte(`scripts=["create path /e"`)},
			wantErr: true,
		},
		{
			desc:     "cfg file",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + "~i.cfg", Data: []byte("scripts = create path /i\n")},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /i"},
		},
		{
			desc:     "properties file",
			node:     &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + ".properties", Data: []byte("# comment\nscripts: create path /j\n")},
			wantKind: installable.KindRepoInitScripts,
			scripts:  []string{"create path /j"},
		},
		{
			desc:    "properties without scripts",
			node:    &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + ".properties", Data: []byte("references = a\n")},
			wantNil: true,
		},
		{
			desc:    "other factory config file",
			node:    &session.Node{Path: "/apps/x/config/org.example.Other.config", Data: []byte(`scripts=["x"]`)},
			wantNil: true,
		},
		{
			desc:    "other config",
			node:    &session.Node{Path: "/apps/x/config/org.example.Other.cfg.json", Data: []byte(`{"scripts": "x"}`)},
			wantNil: true,
		},
		{
			desc:    "invalid json",
			node:    &session.Node{Path: "/apps/x/config/" + installable.RepoInitPID + ".cfg.json", Data: []byte(`{`)},
			wantErr: true,
		},
		{
			desc:    "plain file",
			node:    &session.Node{Path: "/apps/x/install/readme.txt", Data: []byte("x")},
			wantNil: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := s.Prepare(top, tc.node)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Prepare() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if (got == nil) != tc.wantNil {
				t.Fatalf("Prepare() = %v, wantNil %v", got, tc.wantNil)
			}
			if got == nil {
				return
			}
			if got.Kind != tc.wantKind || got.Parent != top || got.Path != tc.node.Path {
				t.Errorf("Prepare() = %v, want kind %v from %v", got, tc.wantKind, top)
			}
			if diff := cmp.Diff(tc.scripts, got.Scripts); diff != "" {
				t.Errorf("Prepare() scripts (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFactoryPID(t *testing.T) {
	testCases := map[string]string{
		"org.example.Factory~inst": "org.example.Factory",
		"org.example.Factory-inst": "org.example.Factory",
		"org.example.Single":       "org.example.Single",
	}
	for in, want := range testCases {
		if got := installable.FactoryPID(in); got != want {
			t.Errorf("FactoryPID(%q) = %q, want %q", in, got, want)
		}
	}
}
