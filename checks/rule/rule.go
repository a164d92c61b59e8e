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

// Package rule implements the ordered allow/deny pattern lists the built-in
// checks are configured with.
package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/tidwall/gjson"
)

// Type is the effect of a matching rule.
type Type int

// Type values. Include and exclude are accepted as aliases of allow and deny.
const (
	Allow Type = iota
	Deny
)

// ParseType parses a rule type name, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "include":
		return Allow, nil
	case "deny", "exclude":
		return Deny, nil
	}
	return Allow, fmt.Errorf("unknown rule type %q", s)
}

func (t Type) String() string {
	if t == Deny {
		return "DENY"
	}
	return "ALLOW"
}

// Rule matches whole values against a regular expression or a glob.
type Rule struct {
	Type    Type
	Pattern string
	re      *regexp.Regexp
	g       glob.Glob
}

// New returns a rule matching values fully matched by the regular expression.
func New(t Type, pattern string) (Rule, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return Rule{}, fmt.Errorf("invalid rule pattern %q: %w", pattern, err)
	}
	return Rule{Type: t, Pattern: pattern, re: re}, nil
}

// NewGlob returns a rule matching values against a glob. "*" doesn't cross
// "/" boundaries, "**" does.
func NewGlob(t Type, pattern string) (Rule, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return Rule{}, fmt.Errorf("invalid rule glob %q: %w", pattern, err)
	}
	return Rule{Type: t, Pattern: pattern, g: g}, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(t Type, pattern string) Rule {
	r, err := New(t, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether the rule matches value.
func (r Rule) Matches(value string) bool {
	switch {
	case r.g != nil:
		return r.g.Match(value)
	case r.re != nil:
		return r.re.MatchString(value)
	}
	return false
}

// IsAllow reports whether the rule allows matching values.
func (r Rule) IsAllow() bool { return r.Type == Allow }

// IsDeny reports whether the rule denies matching values.
func (r Rule) IsDeny() bool { return r.Type == Deny }

func (r Rule) String() string { return r.Type.String() + ":" + r.Pattern }

// FromJSON parses an array of {"type": ..., "pattern": ...} objects. A "glob"
// key may be given instead of "pattern".
func FromJSON(rules gjson.Result) ([]Rule, error) {
	if !rules.Exists() || rules.Type == gjson.Null {
		return nil, nil
	}
	if !rules.IsArray() {
		return nil, fmt.Errorf("rules must be an array, got %s", rules.Raw)
	}
	var result []Rule
	for _, obj := range rules.Array() {
		t, err := ParseType(obj.Get("type").String())
		if err != nil {
			return nil, err
		}
		var r Rule
		if g := obj.Get("glob"); g.Exists() {
			r, err = NewGlob(t, g.String())
		} else {
			r, err = New(t, obj.Get("pattern").String())
		}
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

// LastMatch returns the last rule matching value.
func LastMatch(rules []Rule, value string) (Rule, bool) {
	var last Rule
	found := false
	for _, r := range rules {
		if r.Matches(value) {
			last, found = r, true
		}
	}
	return last, found
}

// DefaultFor returns the rule applied to values no rule matches: the opposite
// of the first rule's type, or allow for an empty list.
func DefaultFor(rules []Rule) Rule {
	t := Allow
	if len(rules) > 0 && rules[0].IsAllow() {
		t = Deny
	}
	return MustNew(t, ".*")
}

// LastMatchOrDefault is like LastMatch but falls back to DefaultFor.
func LastMatchOrDefault(rules []Rule, value string) Rule {
	if r, ok := LastMatch(rules, value); ok {
		return r
	}
	return DefaultFor(rules)
}
