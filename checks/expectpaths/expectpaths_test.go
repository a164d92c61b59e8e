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

package expectpaths_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/expectpaths"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
)

type report struct {
	desc string
	pkgs []packageid.PackageID
}

func TestExpectPaths(t *testing.T) {
	first := packageid.New("g", "first", "1")
	second := packageid.New("g", "second", "1")
	testCases := []struct {
		desc   string
		config string
		want   []report
	}{
		{
			desc:   "every package",
			config: `{"expectedPaths":["/apps/a","/apps/b"],"notExpectedPaths":["/apps/c"]}`,
			want: []report{
				{desc: "expected path missing: /apps/b", pkgs: []packageid.PackageID{first, second}},
				{desc: "unexpected path present: /apps/c", pkgs: []packageid.PackageID{second}},
			},
		},
		{
			desc:   "only after first",
			config: `{"expectedPaths":["/apps/b"],"afterPackageIdRules":[{"type":"include","pattern":"g:first:.*"}]}`,
			want: []report{
				{desc: "expected path missing: /apps/b", pkgs: []packageid.PackageID{first}},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := t.Context()
			sess, err := session.OpenInMemory(ctx)
			if err != nil {
				t.Fatalf("OpenInMemory(): %v", err)
			}
			defer sess.Close()

			c, err := expectpaths.New(check.MustConfig(tc.config))
			if err != nil {
				t.Fatalf("New(): %v", err)
			}
			ec := c.(*expectpaths.Check)
			var got []report
			r := violation.ReporterFunc(func(sev violation.Severity, desc string, pkgs ...packageid.PackageID) {
				got = append(got, report{desc: desc, pkgs: pkgs})
			})

			_ = ec.StartedScan(ctx, r)
			if _, err := sess.Put(ctx, &session.Node{Path: "/apps/a", PrimaryType: "nt:folder"}); err != nil {
				t.Fatal(err)
			}
			if err := ec.AfterExtract(ctx, r, first, sess); err != nil {
				t.Fatalf("AfterExtract(): %v", err)
			}
			if _, err := sess.Put(ctx, &session.Node{Path: "/apps/c", PrimaryType: "nt:folder"}); err != nil {
				t.Fatal(err)
			}
			if err := ec.AfterExtract(ctx, r, second, sess); err != nil {
				t.Fatalf("AfterExtract(): %v", err)
			}
			if len(got) != 0 {
				t.Errorf("violations reported before finishedScan: %v", got)
			}
			_ = ec.FinishedScan(ctx, r)

			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(report{})); diff != "" {
				t.Errorf("reported violations (-want +got):\n%s", diff)
			}
		})
	}
}
