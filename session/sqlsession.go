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

package session

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"maps"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

const (
	// RootType is the primary type of the root node.
	RootType = "rep:root"
	// FolderType is the primary type given to implicitly created ancestors.
	FolderType = "nt:folder"
)

const schema = `
CREATE TABLE nodes (
	path TEXT PRIMARY KEY,
	parent TEXT NOT NULL,
	primary_type TEXT NOT NULL,
	props TEXT NOT NULL,
	data BLOB
);
CREATE INDEX nodes_parent ON nodes(parent);
`

// SQLSession is a Session kept in an in-memory SQLite database.
type SQLSession struct {
	db *sql.DB
}

// OpenInMemory returns an empty repository containing only the root node.
func OpenInMemory(ctx context.Context) (*SQLSession, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, &Fault{Op: "open", Err: err}
	}
	// Every connection to ":memory:" sees its own database.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &Fault{Op: "open", Err: err}
	}
	s := &SQLSession{db: db}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO nodes(path, parent, primary_type, props, data) VALUES ('/', '', ?, '{}', NULL)`,
		RootType); err != nil {
		db.Close()
		return nil, &Fault{Op: "open", Err: err}
	}
	return s, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getNode(ctx context.Context, q querier, p string) (*Node, error) {
	var primaryType, props string
	var data []byte
	err := q.QueryRowContext(ctx,
		`SELECT primary_type, props, data FROM nodes WHERE path = ?`, p).Scan(&primaryType, &props, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Fault{Op: "read", Path: p, Err: err}
	}
	n := &Node{Path: p, PrimaryType: primaryType, Data: data}
	if err := json.Unmarshal([]byte(props), &n.Properties); err != nil {
		return nil, &Fault{Op: "read", Path: p, Err: err}
	}
	return n, nil
}

// Node implements Reader.
func (s *SQLSession) Node(ctx context.Context, path string) (*Node, error) {
	return getNode(ctx, s.db, Clean(path))
}

// Exists implements Reader.
func (s *SQLSession) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.Node(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Children implements Reader.
func (s *SQLSession) Children(ctx context.Context, path string) ([]*Node, error) {
	p := Clean(path)
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, primary_type, props, data FROM nodes WHERE parent = ? ORDER BY path`, p)
	if err != nil {
		return nil, &Fault{Op: "list", Path: p, Err: err}
	}
	defer rows.Close()
	var result []*Node
	for rows.Next() {
		n := &Node{}
		var props string
		if err := rows.Scan(&n.Path, &n.PrimaryType, &props, &n.Data); err != nil {
			return nil, &Fault{Op: "list", Path: p, Err: err}
		}
		if err := json.Unmarshal([]byte(props), &n.Properties); err != nil {
			return nil, &Fault{Op: "list", Path: n.Path, Err: err}
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &Fault{Op: "list", Path: p, Err: err}
	}
	return result, nil
}

// Put implements Session.
func (s *SQLSession) Put(ctx context.Context, n *Node) (action PathAction, err error) {
	p := Clean(n.Path)
	if p == "/" {
		return ActionNoop, nil
	}
	primaryType := n.PrimaryType
	if primaryType == "" {
		primaryType = FolderType
	}
	props, err := json.Marshal(nonNil(n.Properties))
	if err != nil {
		return ActionNoop, &Fault{Op: "put", Path: p, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ActionNoop, &Fault{Op: "put", Path: p, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err := ensureAncestors(ctx, tx, ParentPath(p)); err != nil {
		return ActionNoop, err
	}

	old, err := getNode(ctx, tx, p)
	switch {
	case errors.Is(err, ErrNotFound):
		action = ActionAdded
		_, err = tx.ExecContext(ctx,
			`INSERT INTO nodes(path, parent, primary_type, props, data) VALUES (?, ?, ?, ?, ?)`,
			p, ParentPath(p), primaryType, string(props), n.Data)
	case err != nil:
		return ActionNoop, err
	default:
		action = compare(old, primaryType, n)
		if action == ActionNoop {
			break
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE nodes SET primary_type = ?, props = ?, data = ? WHERE path = ?`,
			primaryType, string(props), n.Data, p)
	}
	if err != nil {
		return ActionNoop, &Fault{Op: "put", Path: p, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return ActionNoop, &Fault{Op: "put", Path: p, Err: err}
	}
	return action, nil
}

func ensureAncestors(ctx context.Context, tx *sql.Tx, p string) error {
	if p == "" || p == "/" {
		return nil
	}
	if _, err := getNode(ctx, tx, p); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := ensureAncestors(ctx, tx, ParentPath(p)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes(path, parent, primary_type, props, data) VALUES (?, ?, ?, '{}', NULL)`,
		p, ParentPath(p), FolderType); err != nil {
		return &Fault{Op: "put", Path: p, Err: err}
	}
	return nil
}

func compare(old *Node, primaryType string, n *Node) PathAction {
	if old.PrimaryType != primaryType {
		return ActionReplaced
	}
	if !maps.Equal(nonNil(old.Properties), nonNil(n.Properties)) || !bytes.Equal(old.Data, n.Data) {
		return ActionModified
	}
	return ActionNoop
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// Remove implements Session.
func (s *SQLSession) Remove(ctx context.Context, path string) (bool, error) {
	p := Clean(path)
	if p == "/" {
		return false, &Fault{Op: "remove", Path: p, Err: errors.New("the root node can't be removed")}
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE path = ? OR substr(path, 1, ?) = ?`, p, len(p)+1, p+"/")
	if err != nil {
		return false, &Fault{Op: "remove", Path: p, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &Fault{Op: "remove", Path: p, Err: err}
	}
	return n > 0, nil
}

// Close releases the database.
func (s *SQLSession) Close() error {
	return s.db.Close()
}
