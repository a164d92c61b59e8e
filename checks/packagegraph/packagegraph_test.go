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

package packagegraph_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/packagegraph"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/violation"
)

var (
	root = packageid.New("g", "root", "1")
	sub  = packageid.New("g", "sub", "1")
	emb  = packageid.New("g", "emb", "1")
)

func TestGraph(t *testing.T) {
	c, err := packagegraph.New(check.MustConfig(`{"reportEdges": true}`))
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	g := c.(*packagegraph.Check)
	var got []string
	r := violation.ReporterFunc(func(_ violation.Severity, desc string, _ ...packageid.PackageID) { got = append(got, desc) })
	ctx := t.Context()

	_ = g.StartedScan(ctx, r)
	_ = g.IdentifyPackage(ctx, r, root, "root.zip")
	_ = g.IdentifySubpackage(ctx, r, sub, root)
	_ = g.IdentifyEmbeddedPackage(ctx, r, emb, sub, &installable.Installable{Path: "/apps/x/install/emb.zip"})
	_ = g.IdentifyPackage(ctx, r, emb, "/apps/x/install/emb.zip")

	wantEdges := []string{
		"subpackage g:sub:1 installed by g:root:1",
		"embedded package g:emb:1 installed by g:sub:1",
	}
	if diff := cmp.Diff(wantEdges, got); diff != "" {
		t.Errorf("reported edges (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]packageid.PackageID{emb, sub, root}, g.SelfAndAncestors(emb)); diff != "" {
		t.Errorf("SelfAndAncestors() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]packageid.PackageID{root, sub, emb}, g.SelfAndDescendants(root)); diff != "" {
		t.Errorf("SelfAndDescendants() (-want +got):\n%s", diff)
	}
	if !g.IsRoot(root) || g.IsRoot(emb) {
		t.Errorf("IsRoot() = %v/%v, want true/false", g.IsRoot(root), g.IsRoot(emb))
	}
	if last, ok := g.LastIdentified(); !ok || last != emb {
		t.Errorf("LastIdentified() = %v, %v, want %v", last, ok, emb)
	}

	// Re-parenting the root below its own descendant must not create a cycle.
	_ = g.IdentifySubpackage(ctx, r, root, emb)
	if diff := cmp.Diff([]packageid.PackageID{root, emb, sub}, g.SelfAndAncestors(root)); diff != "" {
		t.Errorf("SelfAndAncestors() after re-parenting (-want +got):\n%s", diff)
	}
}
