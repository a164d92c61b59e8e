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

// Package lineage tracks the chain of currently open packages, from the scan
// target at the bottom to the innermost sub-package or embedded package.
package lineage

import (
	"errors"
	"slices"

	"github.com/google/packcheck/packageid"
)

// ErrEmptyStack is returned by Close when no package is open. It always means
// the caller mismatched Open and Close calls.
var ErrEmptyStack = errors.New("close called on an empty package lineage")

// Stack is the open-ancestor chain. It is not safe for concurrent use.
type Stack struct {
	ids []packageid.PackageID
}

// Open pushes id as the innermost open package.
func (s *Stack) Open(id packageid.PackageID) {
	s.ids = append(s.ids, id)
}

// Close pops the innermost open package and returns it.
func (s *Stack) Close() (packageid.PackageID, error) {
	if len(s.ids) == 0 {
		return packageid.PackageID{}, ErrEmptyStack
	}
	top := s.ids[len(s.ids)-1]
	s.ids = s.ids[:len(s.ids)-1]
	return top, nil
}

// Current returns the innermost open package, or false if none is open.
func (s *Stack) Current() (packageid.PackageID, bool) {
	if len(s.ids) == 0 {
		return packageid.PackageID{}, false
	}
	return s.ids[len(s.ids)-1], true
}

// Root returns the outermost open package, i.e. the scan target being
// processed.
func (s *Stack) Root() (packageid.PackageID, bool) {
	if len(s.ids) == 0 {
		return packageid.PackageID{}, false
	}
	return s.ids[0], true
}

// Parent returns the package enclosing the innermost one.
func (s *Stack) Parent() (packageid.PackageID, bool) {
	if len(s.ids) < 2 {
		return packageid.PackageID{}, false
	}
	return s.ids[len(s.ids)-2], true
}

// Depth is the number of open packages. A scan target being processed has
// depth 1.
func (s *Stack) Depth() int { return len(s.ids) }

// Lineage returns a copy of the open packages, outermost first.
func (s *Stack) Lineage() []packageid.PackageID {
	return slices.Clone(s.ids)
}
