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

// Package installable simulates the deferred installation of resources found
// in package content, such as embedded packages and repository initialization
// scripts.
package installable

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/runmode"
	"github.com/google/packcheck/session"
)

var (
	// ErrInvalidInstallable is returned by Submit for requests that can't be
	// installed.
	ErrInvalidInstallable = errors.New("invalid installable")
	// ErrQueueDrained is returned by Submit once the current package's queue
	// has been drained.
	ErrQueueDrained = errors.New("installable queue already drained")
	// ErrNoOpenPackage is returned by Submit when no package is being processed.
	ErrNoOpenPackage = errors.New("no package is open")
	// ErrUndrained is returned by Close when installables are still queued.
	ErrUndrained = errors.New("installable queue closed before it was drained")
)

// Kind discriminates installables.
type Kind int

// Kind values.
const (
	KindUnspecified Kind = iota
	KindEmbeddedPackage
	KindRepoInitScripts
)

func (k Kind) String() string {
	switch k {
	case KindEmbeddedPackage:
		return "EMBEDDED_PACKAGE"
	case KindRepoInitScripts:
		return "REPO_INIT_SCRIPTS"
	default:
		return "UNSPECIFIED"
	}
}

// Installable is a deferred installation request. It is never modified once
// submitted.
type Installable struct {
	// ScanPackage is the scan target being processed when the resource was found.
	ScanPackage packageid.PackageID
	// Parent is the package whose content carried the resource.
	Parent packageid.PackageID
	// Path is the repository path of the resource.
	Path     string
	Kind     Kind
	RunModes runmode.Set
	// Data holds the package file of an embedded package.
	Data []byte
	// Scripts holds the repository initialization scripts.
	Scripts []string
}

func (i *Installable) String() string {
	return fmt.Sprintf("%s %s (from %s)", i.Kind, i.Path, i.Parent)
}

func (i *Installable) validate() error {
	switch {
	case i == nil:
		return fmt.Errorf("%w: nil", ErrInvalidInstallable)
	case i.Kind != KindEmbeddedPackage && i.Kind != KindRepoInitScripts:
		return fmt.Errorf("%w: unsupported kind %s for %s", ErrInvalidInstallable, i.Kind, i.Path)
	case i.Path == "":
		return fmt.Errorf("%w: no resource path", ErrInvalidInstallable)
	case i.Kind == KindEmbeddedPackage && len(i.Data) == 0:
		return fmt.Errorf("%w: embedded package %s has no content", ErrInvalidInstallable, i.Path)
	case i.Kind == KindRepoInitScripts && len(i.Scripts) == 0:
		return fmt.Errorf("%w: %s carries no scripts", ErrInvalidInstallable, i.Path)
	}
	return nil
}

// State is the state of the queue of one open package.
type State int

// State values.
const (
	StateQueued State = iota
	StateDispatching
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateDispatching:
		return "DISPATCHING"
	case StateDrained:
		return "DRAINED"
	default:
		return "QUEUED"
	}
}

// Submitter is the part of the simulator handed to checks.
type Submitter interface {
	// Submit queues inst for the package currently being processed.
	Submit(inst *Installable) error
	// Prepare classifies a repository node. It returns nil if the node isn't
	// installable.
	Prepare(parent packageid.PackageID, node *session.Node) (*Installable, error)
}

type queue struct {
	pkg         packageid.PackageID
	scanPackage packageid.PackageID
	items       []*Installable
	state       State
}

// Simulator holds one FIFO queue per open package. Queues are stacked in the
// same order packages are opened, so installables submitted while an embedded
// package is processed land in that package's own queue.
type Simulator struct {
	runModes runmode.Set
	queues   []*queue
}

// NewSimulator returns a simulator for the given active run modes.
func NewSimulator(runModes runmode.Set) *Simulator {
	return &Simulator{runModes: runModes}
}

// RunModes returns the active run modes.
func (s *Simulator) RunModes() runmode.Set { return s.runModes }

// Open starts a queue for pkg, processed on behalf of scan target scanPackage.
func (s *Simulator) Open(pkg, scanPackage packageid.PackageID) {
	s.queues = append(s.queues, &queue{pkg: pkg, scanPackage: scanPackage})
}

// Close discards the innermost queue.
func (s *Simulator) Close() error {
	if len(s.queues) == 0 {
		return ErrNoOpenPackage
	}
	q := s.queues[len(s.queues)-1]
	s.queues = s.queues[:len(s.queues)-1]
	if len(q.items) > 0 {
		return fmt.Errorf("%w: %d pending for %s", ErrUndrained, len(q.items), q.pkg)
	}
	return nil
}

func (s *Simulator) current() *queue {
	if len(s.queues) == 0 {
		return nil
	}
	return s.queues[len(s.queues)-1]
}

// Submit implements Submitter. Missing attribution fields are filled in from
// the open package.
func (s *Simulator) Submit(inst *Installable) error {
	if err := inst.validate(); err != nil {
		return err
	}
	q := s.current()
	if q == nil {
		return ErrNoOpenPackage
	}
	if q.state == StateDrained {
		return fmt.Errorf("%w: %s", ErrQueueDrained, q.pkg)
	}
	c := *inst
	c.Scripts = slices.Clone(inst.Scripts)
	if c.ScanPackage.IsZero() {
		c.ScanPackage = q.scanPackage
	}
	if c.Parent.IsZero() {
		c.Parent = q.pkg
	}
	if c.RunModes.Len() == 0 {
		c.RunModes = s.runModes
	}
	q.items = append(q.items, &c)
	return nil
}

// State returns the state of the innermost queue.
func (s *Simulator) State() State {
	if q := s.current(); q != nil {
		return q.state
	}
	return StateDrained
}

// Pending returns the number of installables queued for the innermost package.
func (s *Simulator) Pending() int {
	if q := s.current(); q != nil {
		return len(q.items)
	}
	return 0
}

// Drain pops installables of the innermost queue in submission order and
// hands each to fn until the queue is empty. fn may open nested queues; they
// must be drained and closed before fn returns.
func (s *Simulator) Drain(ctx context.Context, fn func(ctx context.Context, inst *Installable) error) error {
	q := s.current()
	if q == nil {
		return ErrNoOpenPackage
	}
	q.state = StateDispatching
	for len(q.items) > 0 {
		inst := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		if err := fn(ctx, inst); err != nil {
			return err
		}
		if s.current() != q {
			return fmt.Errorf("nested installable queue for %s left open", q.pkg)
		}
	}
	q.state = StateDrained
	return nil
}
