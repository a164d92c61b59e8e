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

package check

import (
	"fmt"
)

// Registration is one check with the configuration it was created from.
type Registration struct {
	Check  Check
	Config Config
}

// Registry holds the ordered set of active checks. Events are dispatched in
// registration order.
type Registry struct {
	regs  []Registration
	names map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register appends c. Check names must be unique since violations and
// statuses are keyed by them.
func (r *Registry) Register(c Check, cfg Config) error {
	if c == nil {
		return fmt.Errorf("nil check")
	}
	if r.names[c.Name()] {
		return fmt.Errorf("check %q registered twice", c.Name())
	}
	r.names[c.Name()] = true
	r.regs = append(r.regs, Registration{Check: c, Config: cfg})
	return nil
}

// Checks returns the registered checks in registration order.
func (r *Registry) Checks() []Check {
	result := make([]Check, 0, len(r.regs))
	for _, reg := range r.regs {
		result = append(result, reg.Check)
	}
	return result
}

// Registrations returns a copy of all registrations in order.
func (r *Registry) Registrations() []Registration {
	return append([]Registration(nil), r.regs...)
}

// Len returns the number of registered checks.
func (r *Registry) Len() int { return len(r.regs) }
