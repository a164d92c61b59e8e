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

package archive

import (
	"fmt"
	"regexp"

	"github.com/google/packcheck/session"
)

// FilterRule includes or excludes the paths fully matching a regular expression.
type FilterRule struct {
	Include bool
	Pattern string
	re      *regexp.Regexp
}

// NewFilterRule compiles a filter rule.
func NewFilterRule(include bool, pattern string) (FilterRule, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return FilterRule{}, fmt.Errorf("invalid filter pattern %q: %w", pattern, err)
	}
	return FilterRule{Include: include, Pattern: pattern, re: re}, nil
}

// Matches reports whether the rule's pattern matches path.
func (r FilterRule) Matches(path string) bool {
	return r.re != nil && r.re.MatchString(path)
}

// FilterSet is one filter root with its rules.
type FilterSet struct {
	Root string
	// ImportMode is "replace" (the default), "merge" or "update".
	ImportMode string
	Rules      []FilterRule
}

// Covers reports whether path is the root or lies below it.
func (f FilterSet) Covers(path string) bool {
	return path == f.Root || session.IsDescendant(path, f.Root)
}

// Contains reports whether path is inside the filter set. The last matching
// rule decides. When the first rule is an include, unmatched paths are
// excluded, otherwise they are included.
func (f FilterSet) Contains(path string) bool {
	if !f.Covers(path) {
		return false
	}
	if len(f.Rules) == 0 {
		return true
	}
	result := !f.Rules[0].Include
	for _, r := range f.Rules {
		if r.Matches(path) {
			result = r.Include
		}
	}
	return result
}

// Replaces reports whether content missing from the package is removed on
// install.
func (f FilterSet) Replaces() bool {
	return f.ImportMode == "" || f.ImportMode == "replace"
}

// WorkspaceFilter is the set of repository paths a package claims.
type WorkspaceFilter struct {
	Sets []FilterSet
}

// Contains reports whether any filter set contains path.
func (w *WorkspaceFilter) Contains(path string) bool {
	if w == nil {
		return false
	}
	for _, s := range w.Sets {
		if s.Contains(path) {
			return true
		}
	}
	return false
}

// CoveringSet returns the first filter set whose root covers path.
func (w *WorkspaceFilter) CoveringSet(path string) (FilterSet, bool) {
	if w == nil {
		return FilterSet{}, false
	}
	for _, s := range w.Sets {
		if s.Covers(path) {
			return s, true
		}
	}
	return FilterSet{}, false
}

// Roots returns the filter roots in declaration order.
func (w *WorkspaceFilter) Roots() []string {
	if w == nil {
		return nil
	}
	roots := make([]string, 0, len(w.Sets))
	for _, s := range w.Sets {
		roots = append(roots, s.Root)
	}
	return roots
}
