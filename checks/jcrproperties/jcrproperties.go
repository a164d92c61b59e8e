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

// Package jcrproperties implements a check that constrains the node types and
// property values of imported nodes.
package jcrproperties

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/rule"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/google/packcheck/violation"
	"github.com/tidwall/gjson"
)

// Name is the unique name of this check.
const Name = "jcrProperties"

const (
	configScopePaths     = "scopePaths"
	configDenyNodeTypes  = "denyNodeTypes"
	configScopeNodeTypes = "scopeNodeTypes"
	configProperties     = "properties"

	mixinTypesProperty = "jcr:mixinTypes"
)

// Check evaluates property constraints on imported nodes inside the package
// filter and the path scope.
type Check struct {
	scopePaths     []rule.Rule
	denyNodeTypes  []string
	scopeNodeTypes []string
	constraints    []Constraint

	filter *archive.WorkspaceFilter
	// denied is the root of the subtree last rejected by node type.
	denied string
}

// New returns a jcrProperties check. Config keys: "scopePaths" (rules),
// "denyNodeTypes", "scopeNodeTypes" and "properties" (constraints, see
// ParseConstraints).
func New(cfg check.Config) (check.Check, error) {
	scope, err := rule.FromJSON(cfg.Get(configScopePaths))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	constraints, err := ParseConstraints(cfg.Get(configProperties))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	return &Check{
		scopePaths:     scope,
		denyNodeTypes:  cfg.Strings(configDenyNodeTypes),
		scopeNodeTypes: cfg.Strings(configScopeNodeTypes),
		constraints:    constraints,
	}, nil
}

// Name of the check.
func (*Check) Name() string { return Name }

// Version of the check.
func (*Check) Version() int { return 0 }

// BeforeExtract keeps the filter of the package about to be imported.
func (c *Check) BeforeExtract(_ context.Context, _ violation.Reporter, _ packageid.PackageID, _ session.Reader,
	_ archive.Properties, metaInf *archive.MetaInf, _ []packageid.PackageID) error {
	c.filter = nil
	if metaInf != nil {
		c.filter = metaInf.Filter
	}
	c.denied = ""
	return nil
}

// ImportedPath evaluates the node types and constraints of one imported node.
// Descendants of a node with a denied type aren't evaluated.
func (c *Check) ImportedPath(_ context.Context, r violation.Reporter, id packageid.PackageID, path string,
	node *session.Node, _ session.PathAction) error {
	if node == nil || !c.filter.Contains(path) {
		return nil
	}
	if c.denied != "" {
		if session.IsDescendant(path, c.denied) {
			return nil
		}
		c.denied = ""
	}
	if !c.inPathScope(path) {
		return nil
	}

	for _, t := range c.denyNodeTypes {
		if isNodeType(node, t) {
			r.Report(violation.SeverityMajor, fmt.Sprintf("%s: denied node type %s", describe(node), t), id)
			c.denied = path
			return nil
		}
	}
	if len(c.scopeNodeTypes) > 0 && !slices.ContainsFunc(c.scopeNodeTypes, func(t string) bool { return isNodeType(node, t) }) {
		return nil
	}
	for _, pc := range c.constraints {
		if reason, ok := pc.Evaluate(node); ok {
			r.Report(pc.Severity, fmt.Sprintf("%s: %s -> %s", describe(node), reason, pc.Name), id)
		}
	}
	return nil
}

// inPathScope applies the scope rules. Without rules every path is in scope;
// with rules, unmatched paths are not.
func (c *Check) inPathScope(path string) bool {
	if len(c.scopePaths) == 0 {
		return true
	}
	m, ok := rule.LastMatch(c.scopePaths, path)
	return ok && m.IsAllow()
}

// Constraint restricts one property of the nodes in scope.
type Constraint struct {
	Name              string
	DenyIfAbsent      bool
	DenyIfPresent     bool
	DenyIfMultivalued bool
	// ValueRules are applied to every value. The last matching rule decides.
	ValueRules []rule.Rule
	Severity   violation.Severity
}

// ParseConstraints reads an array of constraint objects with the keys
// "name", "denyIfAbsent", "denyIfPresent", "denyIfMultivalued", "valueRules"
// and "severity" (MAJOR by default).
func ParseConstraints(arr gjson.Result) ([]Constraint, error) {
	if !arr.Exists() || arr.Type == gjson.Null {
		return nil, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("properties must be an array, got %s", arr.Raw)
	}
	var result []Constraint
	for _, obj := range arr.Array() {
		pc := Constraint{
			Name:              obj.Get("name").String(),
			DenyIfAbsent:      obj.Get("denyIfAbsent").Bool(),
			DenyIfPresent:     obj.Get("denyIfPresent").Bool(),
			DenyIfMultivalued: obj.Get("denyIfMultivalued").Bool(),
			Severity:          violation.SeverityMajor,
		}
		if pc.Name == "" {
			return nil, errors.New("property constraint without a name")
		}
		if obj.Get("requireType").String() != "" {
			return nil, fmt.Errorf("property %s: requireType is not supported, property types aren't kept", pc.Name)
		}
		rules, err := rule.FromJSON(obj.Get("valueRules"))
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", pc.Name, err)
		}
		pc.ValueRules = rules
		if s := obj.Get("severity"); s.Exists() {
			if pc.Severity, err = violation.ParseSeverity(s.String()); err != nil {
				return nil, fmt.Errorf("property %s: %w", pc.Name, err)
			}
		}
		result = append(result, pc)
	}
	return result, nil
}

// Evaluate returns the reason node violates the constraint, if it does.
func (pc Constraint) Evaluate(node *session.Node) (reason string, violated bool) {
	v, ok := node.Properties[pc.Name]
	if !ok {
		return "property absent", pc.DenyIfAbsent
	}
	if pc.DenyIfPresent {
		return "property present", true
	}
	values, multi := propertyValues(v)
	if pc.DenyIfMultivalued && multi {
		return "property is multivalued", true
	}
	for _, value := range values {
		if m := rule.LastMatchOrDefault(pc.ValueRules, value); m.IsDeny() {
			return fmt.Sprintf("value %s denied by pattern %s", value, m.Pattern), true
		}
	}
	return "", false
}

// propertyValues splits a serialized property value. Multi-valued properties
// are written as "[a,b]" with commas in values escaped by a backslash.
func propertyValues(v string) (values []string, multi bool) {
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return []string{v}, false
	}
	inner := v[1 : len(v)-1]
	if inner == "" {
		return nil, true
	}
	var cur strings.Builder
	for i := 0; i < len(inner); i++ {
		switch {
		case inner[i] == '\\' && i+1 < len(inner):
			i++
			cur.WriteByte(inner[i])
		case inner[i] == ',':
			values = append(values, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(inner[i])
		}
	}
	return append(values, cur.String()), true
}

func mixins(node *session.Node) []string {
	v, ok := node.Properties[mixinTypesProperty]
	if !ok {
		return nil
	}
	values, _ := propertyValues(v)
	return values
}

// isNodeType matches the primary type and the mixins of node. Type
// inheritance isn't modeled.
func isNodeType(node *session.Node, t string) bool {
	return node.PrimaryType == t || slices.Contains(mixins(node), t)
}

func describe(node *session.Node) string {
	return fmt.Sprintf("%s (t: %s, m: [%s])", node.Path, node.PrimaryType, strings.Join(mixins(node), ", "))
}
