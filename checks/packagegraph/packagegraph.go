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

// Package packagegraph implements a check tracking the containment graph of
// the packages seen during a pass.
package packagegraph

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/installable"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/violation"
)

// Name is the unique name of this check.
const Name = "packageGraph"

type node struct {
	id       packageid.PackageID
	parent   *node
	children []*node
}

func (n *node) removeChild(c *node) {
	n.children = slices.DeleteFunc(n.children, func(x *node) bool { return x == c })
}

// Check records which package contains which. With reportEdges set, every
// sub-package and embedded package edge is reported at MINOR.
type Check struct {
	reportEdges bool
	identified  []packageid.PackageID
	embedded    packageid.PackageID
	nodes       map[packageid.PackageID]*node
}

// New returns a package graph check. Config key: "reportEdges".
func New(cfg check.Config) (check.Check, error) {
	return &Check{reportEdges: cfg.Bool("reportEdges", false), nodes: make(map[packageid.PackageID]*node)}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

func (c *Check) get(id packageid.PackageID) *node {
	n, ok := c.nodes[id]
	if !ok {
		n = &node{id: id}
		c.nodes[id] = n
	}
	return n
}

// setParent moves n below parent. A parent that is currently a descendant of
// n is detached from n first so the graph stays acyclic.
func (c *Check) setParent(n, parent *node) {
	if n.parent != nil {
		n.parent.removeChild(n)
		n.parent = nil
	}
	if parent == nil || parent == n {
		return
	}
	for a := parent; a.parent != nil; a = a.parent {
		if a.parent == n {
			n.removeChild(a)
			a.parent = nil
			break
		}
	}
	n.parent = parent
	parent.children = append(parent.children, n)
}

// StartedScan resets the graph.
func (c *Check) StartedScan(context.Context, violation.Reporter) error {
	c.identified = nil
	c.embedded = packageid.PackageID{}
	clear(c.nodes)
	return nil
}

// IdentifyPackage records a root. The identification that directly follows
// an embedded package edge keeps that edge.
func (c *Check) IdentifyPackage(_ context.Context, _ violation.Reporter, id packageid.PackageID, _ string) error {
	if id == c.embedded {
		c.embedded = packageid.PackageID{}
		return nil
	}
	c.identified = append(c.identified, id)
	c.setParent(c.get(id), nil)
	return nil
}

// IdentifySubpackage records a sub-package edge.
func (c *Check) IdentifySubpackage(_ context.Context, r violation.Reporter, id, parent packageid.PackageID) error {
	c.link(r, id, parent, "subpackage")
	return nil
}

// IdentifyEmbeddedPackage records an embedded package edge.
func (c *Check) IdentifyEmbeddedPackage(_ context.Context, r violation.Reporter, id, parent packageid.PackageID,
	_ *installable.Installable) error {
	c.link(r, id, parent, "embedded package")
	c.embedded = id
	return nil
}

func (c *Check) link(r violation.Reporter, id, parent packageid.PackageID, kind string) {
	c.identified = append(c.identified, id)
	c.setParent(c.get(id), c.get(parent))
	if c.reportEdges {
		r.Report(violation.SeverityMinor, fmt.Sprintf("%s %s installed by %s", kind, id, parent), id)
	}
}

// IsIdentified reports whether id was seen in this pass.
func (c *Check) IsIdentified(id packageid.PackageID) bool {
	return slices.Contains(c.identified, id)
}

// LastIdentified returns the most recently identified package.
func (c *Check) LastIdentified() (packageid.PackageID, bool) {
	if len(c.identified) == 0 {
		return packageid.PackageID{}, false
	}
	return c.identified[len(c.identified)-1], true
}

// IsRoot reports whether id has no parent.
func (c *Check) IsRoot(id packageid.PackageID) bool {
	n, ok := c.nodes[id]
	return !ok || n.parent == nil
}

// SelfAndAncestors returns id followed by its ancestors, innermost first.
func (c *Check) SelfAndAncestors(id packageid.PackageID) []packageid.PackageID {
	result := []packageid.PackageID{id}
	if n, ok := c.nodes[id]; ok {
		for a := n.parent; a != nil; a = a.parent {
			result = append(result, a.id)
		}
	}
	return result
}

// SelfAndDescendants returns id followed by its descendants, depth-first in
// identification order.
func (c *Check) SelfAndDescendants(id packageid.PackageID) []packageid.PackageID {
	result := []packageid.PackageID{id}
	n, ok := c.nodes[id]
	if !ok {
		return result
	}
	for _, child := range n.children {
		result = append(result, c.SelfAndDescendants(child.id)...)
	}
	return result
}
