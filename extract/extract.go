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

// Package extract replays package content into a simulated repository
// session and applies repository initialization scripts.
package extract

import (
	"context"
	"slices"

	"bitbucket.org/creachadair/stringset"
	"github.com/google/packcheck/archive"
	"github.com/google/packcheck/log"
	"github.com/google/packcheck/session"
)

// Listener is notified of every path an extraction touches. A path is either
// imported or deleted within one extraction, never both.
type Listener interface {
	ImportedPath(ctx context.Context, path string, node *session.Node, action session.PathAction)
	DeletedPath(ctx context.Context, path string)
}

// Extractor is the extraction collaborator of the scan engine. Errors it
// returns for session operations wrap session.ErrSession.
type Extractor interface {
	// Extract imports the content of a into s, in archive order, then removes
	// content the archive's filter replaces but doesn't carry.
	Extract(ctx context.Context, a archive.Archive, s session.Session, l Listener) error
	// ApplyRepoInit applies repository initialization scripts to s.
	ApplyRepoInit(ctx context.Context, scripts []string, s session.Session) error
}

// Default is the built-in Extractor.
type Default struct{}

// New returns the built-in Extractor.
func New() *Default { return &Default{} }

// Extract implements Extractor.
func (*Default) Extract(ctx context.Context, a archive.Archive, s session.Session, l Listener) error {
	filter := a.MetaInf().Filter
	kept := stringset.New()
	for _, e := range a.Entries() {
		p := session.Clean(e.Path)
		if p == "/" {
			continue
		}
		if filter != nil && !filter.Contains(p) {
			continue
		}
		node := e.Node()
		node.Path = p
		action, err := s.Put(ctx, node)
		if err != nil {
			return err
		}
		for q := p; q != "" && !kept.Contains(q); q = session.ParentPath(q) {
			kept.Add(q)
		}
		l.ImportedPath(ctx, p, node, action)
	}
	if filter == nil {
		return nil
	}
	for _, set := range filter.Sets {
		if !set.Replaces() {
			continue
		}
		if err := deleteMissing(ctx, set, kept, s, l); err != nil {
			return err
		}
	}
	return nil
}

// deleteMissing removes the nodes below set's root that the filter contains
// but the package neither imported nor needs as an ancestor. Only the
// top-most removed node of each subtree is reported.
func deleteMissing(ctx context.Context, set archive.FilterSet, kept stringset.Set, s session.Session, l Listener) error {
	exists, err := s.Exists(ctx, set.Root)
	if err != nil || !exists {
		return err
	}
	removable, err := sweep(ctx, set, kept, s, l, set.Root)
	if err != nil || !removable {
		return err
	}
	return remove(ctx, s, l, set.Root)
}

// sweep reports whether the whole subtree at p can be removed. Removable
// children of a node that has to stay are removed right away.
func sweep(ctx context.Context, set archive.FilterSet, kept stringset.Set, s session.Session, l Listener, p string) (bool, error) {
	children, err := s.Children(ctx, p)
	if err != nil {
		return false, err
	}
	all := true
	var removable []string
	for _, c := range children {
		ok, err := sweep(ctx, set, kept, s, l, c.Path)
		if err != nil {
			return false, err
		}
		if ok {
			removable = append(removable, c.Path)
		} else {
			all = false
		}
	}
	if all && p != "/" && set.Contains(p) && !kept.Contains(p) {
		return true, nil
	}
	for _, c := range removable {
		if err := remove(ctx, s, l, c); err != nil {
			return false, err
		}
	}
	return false, nil
}

func remove(ctx context.Context, s session.Session, l Listener, p string) error {
	if _, err := s.Remove(ctx, p); err != nil {
		return err
	}
	log.Debugf("removed %s", p)
	l.DeletedPath(ctx, p)
	return nil
}

// ApplyRepoInit implements Extractor. Every script is parsed before anything
// is applied, so a malformed script leaves the session untouched.
func (*Default) ApplyRepoInit(ctx context.Context, scripts []string, s session.Session) error {
	var stmts []Statement
	for _, script := range scripts {
		parsed, err := ParseScript(script)
		if err != nil {
			return err
		}
		stmts = slices.Concat(stmts, parsed)
	}
	for _, st := range stmts {
		if err := st.Apply(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
