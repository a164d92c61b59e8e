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

// Package session defines the simulated repository that package content is
// replayed into during a scan, and the read-only view checks receive of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a path has no node.
	ErrNotFound = errors.New("node not found")
	// ErrSession marks every fault raised by the repository itself. Such faults
	// leave the simulated state inconsistent and must abort the scan.
	ErrSession = errors.New("session fault")
)

// Fault is an error raised by the underlying repository.
type Fault struct {
	Op   string
	Path string
	Err  error
}

func (f *Fault) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("session %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("session %s %s: %v", f.Op, f.Path, f.Err)
}

// Unwrap returns the wrapped error.
func (f *Fault) Unwrap() error { return f.Err }

// Is makes every Fault match ErrSession.
func (f *Fault) Is(target error) bool { return target == ErrSession }

// PathAction classifies the effect of importing or removing one path.
type PathAction int

// PathAction values.
const (
	ActionNoop PathAction = iota
	ActionAdded
	ActionModified
	ActionReplaced
	ActionDeleted
)

// ShortCode returns the one-character code used in import logs.
func (a PathAction) ShortCode() string {
	switch a {
	case ActionAdded:
		return "A"
	case ActionModified:
		return "U"
	case ActionReplaced:
		return "R"
	case ActionDeleted:
		return "D"
	default:
		return "-"
	}
}

func (a PathAction) String() string {
	switch a {
	case ActionAdded:
		return "ADDED"
	case ActionModified:
		return "MODIFIED"
	case ActionReplaced:
		return "REPLACED"
	case ActionDeleted:
		return "DELETED"
	default:
		return "NOOP"
	}
}

// ParseShortCode is the inverse of ShortCode.
func ParseShortCode(code string) (PathAction, error) {
	for _, a := range []PathAction{ActionNoop, ActionAdded, ActionModified, ActionReplaced, ActionDeleted} {
		if a.ShortCode() == code {
			return a, nil
		}
	}
	return ActionNoop, fmt.Errorf("unknown path action code %q", code)
}

// Node is one repository item.
type Node struct {
	Path        string
	PrimaryType string
	Properties  map[string]string
	// Data is the binary content of file nodes.
	Data []byte
}

// Name returns the last path segment.
func (n *Node) Name() string { return path.Base(n.Path) }

// ParentPath returns the path of the enclosing node.
func (n *Node) ParentPath() string { return ParentPath(n.Path) }

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Properties = maps.Clone(n.Properties)
	if n.Data != nil {
		c.Data = append([]byte(nil), n.Data...)
	}
	return &c
}

// ParentPath returns the parent of an absolute repository path.
func ParentPath(p string) string {
	if p == "/" || p == "" {
		return ""
	}
	return path.Dir(p)
}

// Clean normalizes an absolute repository path.
func Clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsDescendant reports whether p lies strictly below ancestor.
func IsDescendant(p, ancestor string) bool {
	if ancestor == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// Reader is the read-only capability handed to checks.
type Reader interface {
	// Node returns the node at path, or ErrNotFound.
	Node(ctx context.Context, path string) (*Node, error)
	// Exists reports whether a node exists at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Children returns the direct children of path sorted by path.
	Children(ctx context.Context, path string) ([]*Node, error)
}

// Session is the mutation surface the extraction replay needs.
type Session interface {
	Reader
	// Put creates or updates the node and any missing ancestors and returns the
	// effect on n.Path.
	Put(ctx context.Context, n *Node) (PathAction, error)
	// Remove deletes the node at path and its subtree. It reports whether a node
	// existed.
	Remove(ctx context.Context, path string) (bool, error)
	Close() error
}

type readOnly struct {
	r Reader
}

// ReadOnly restricts s to its Reader methods so that a check can't type-assert
// its way back to the mutation surface.
func ReadOnly(s Reader) Reader {
	if ro, ok := s.(readOnly); ok {
		return ro
	}
	return readOnly{r: s}
}

func (r readOnly) Node(ctx context.Context, path string) (*Node, error) {
	return r.r.Node(ctx, path)
}

func (r readOnly) Exists(ctx context.Context, path string) (bool, error) {
	return r.r.Exists(ctx, path)
}

func (r readOnly) Children(ctx context.Context, path string) ([]*Node, error) {
	return r.r.Children(ctx, path)
}
