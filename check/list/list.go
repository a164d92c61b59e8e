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

// Package list provides a public list of the built-in checks.
package list

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/packcheck/check"
	"github.com/google/packcheck/checks/echo"
	"github.com/google/packcheck/checks/expectpaths"
	"github.com/google/packcheck/checks/filtersets"
	"github.com/google/packcheck/checks/jcrinstaller"
	"github.com/google/packcheck/checks/jcrproperties"
	"github.com/google/packcheck/checks/overlaps"
	"github.com/google/packcheck/checks/packagegraph"
	"github.com/google/packcheck/checks/paths"
	"github.com/google/packcheck/checks/subpackages"
)

// InitMap is a map of check names to their factories.
type InitMap map[string]check.Factory

// Default checks that are recommended to be enabled.
var Default = InitMap{
	jcrinstaller.Name: jcrinstaller.New,
	overlaps.Name:     overlaps.New,
	subpackages.Name:  subpackages.New,
	packagegraph.Name: packagegraph.New,
}

// All built-in checks.
var All = concat(Default, InitMap{
	echo.Name:          echo.New,
	paths.Name:         paths.New,
	expectpaths.Name:   expectpaths.New,
	filtersets.Name:    filtersets.New,
	jcrproperties.Name: jcrproperties.New,
})

var aliases = map[string]InitMap{
	"default": Default,
	"all":     All,
}

func concat(initMaps ...InitMap) InitMap {
	result := InitMap{}
	for _, m := range initMaps {
		maps.Copy(result, m)
	}
	return result
}

// Names returns the names of all built-in checks, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(All))
}

// FactoryFromName returns the factory of the named built-in check.
func FactoryFromName(name string) (check.Factory, error) {
	f, ok := All[name]
	if !ok {
		return nil, fmt.Errorf("unknown check %q", name)
	}
	return f, nil
}

// FromName creates the named built-in check from cfg.
func FromName(name string, cfg check.Config) (check.Check, error) {
	f, err := FactoryFromName(name)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}

// FromNames returns a deduplicated list of checks with empty configurations
// from a list of check names or the aliases "default" and "all". Checks keep
// the order in which their names first appear; aliases expand sorted.
func FromNames(names []string) ([]check.Check, error) {
	var result []check.Check
	seen := make(map[string]bool)
	add := func(name string, f check.Factory) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		c, err := f(check.Config{})
		if err != nil {
			return err
		}
		result = append(result, c)
		return nil
	}
	for _, n := range names {
		if m, ok := aliases[n]; ok {
			for _, name := range slices.Sorted(maps.Keys(m)) {
				if err := add(name, m[name]); err != nil {
					return nil, err
				}
			}
			continue
		}
		f, err := FactoryFromName(n)
		if err != nil {
			return nil, err
		}
		if err := add(n, f); err != nil {
			return nil, err
		}
	}
	return result, nil
}
