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

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/packcheck/log"
	"github.com/google/packcheck/session"
)

// ErrMalformedScript is returned for repository initialization scripts that
// can't be parsed.
var ErrMalformedScript = errors.New("malformed repo-init script")

// DefaultPathType is the node type "create path" uses for segments without an
// explicit type.
const DefaultPathType = "sling:Folder"

// Op is a repo-init operation.
type Op int

// Supported operations. Statements of any other kind are skipped.
const (
	OpSkip Op = iota
	OpCreatePath
	OpDeletePath
)

// Segment is one path element of a "create path" statement.
type Segment struct {
	Name string
	Type string
}

// Statement is one parsed repo-init statement.
type Statement struct {
	Op   Op
	Line int
	Text string
	// Path is the target of the statement.
	Path string
	// Segments hold the typed path elements of OpCreatePath statements.
	Segments []Segment
}

// ParseScript parses a repo-init script. Only "create path" and "delete path"
// statements are interpreted; "set ... end" blocks and other statements are
// kept as OpSkip.
func ParseScript(script string) ([]Statement, error) {
	var result []Statement
	inBlock := false
	for i, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lineNo := i + 1
		if inBlock {
			if line == "end" {
				inBlock = false
			}
			continue
		}
		fields := strings.Fields(line)
		switch {
		case len(fields) >= 2 && fields[0] == "create" && fields[1] == "path":
			st, err := parseCreatePath(strings.TrimSpace(line[len("create path"):]))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d %q: %w", ErrMalformedScript, lineNo, line, err)
			}
			st.Line, st.Text = lineNo, line
			result = append(result, st)
		case len(fields) >= 2 && fields[0] == "delete" && fields[1] == "path":
			if len(fields) != 3 || !strings.HasPrefix(fields[2], "/") {
				return nil, fmt.Errorf("%w: line %d %q: expected one absolute path", ErrMalformedScript, lineNo, line)
			}
			result = append(result, Statement{Op: OpDeletePath, Line: lineNo, Text: line, Path: session.Clean(fields[2])})
		case fields[0] == "set":
			inBlock = true
			result = append(result, Statement{Op: OpSkip, Line: lineNo, Text: line})
		default:
			result = append(result, Statement{Op: OpSkip, Line: lineNo, Text: line})
		}
	}
	if inBlock {
		return nil, fmt.Errorf("%w: unterminated block", ErrMalformedScript)
	}
	return result, nil
}

// parseCreatePath parses "[(type)] /a(type)/b/c(type)".
func parseCreatePath(rest string) (Statement, error) {
	st := Statement{Op: OpCreatePath}
	defType := DefaultPathType
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return st, errors.New("unbalanced parenthesis")
		}
		defType = strings.TrimSpace(rest[1:end])
		rest = strings.TrimSpace(rest[end+1:])
	}
	if !strings.HasPrefix(rest, "/") || strings.ContainsAny(rest, " \t") {
		return st, errors.New("expected one absolute path")
	}
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(rest, "/"), "/") {
		name, typ := part, defType
		if i := strings.IndexByte(part, '('); i >= 0 {
			if !strings.HasSuffix(part, ")") {
				return st, errors.New("unbalanced parenthesis")
			}
			name, typ = part[:i], part[i+1:len(part)-1]
		}
		if name == "" {
			return st, errors.New("empty path segment")
		}
		st.Segments = append(st.Segments, Segment{Name: name, Type: typ})
		b.WriteString("/" + name)
	}
	st.Path = b.String()
	return st, nil
}

// Apply applies the statement to s.
func (st Statement) Apply(ctx context.Context, s session.Session) error {
	switch st.Op {
	case OpCreatePath:
		p := ""
		for _, seg := range st.Segments {
			p += "/" + seg.Name
			exists, err := s.Exists(ctx, p)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := s.Put(ctx, &session.Node{Path: p, PrimaryType: seg.Type}); err != nil {
				return err
			}
		}
	case OpDeletePath:
		if _, err := s.Remove(ctx, st.Path); err != nil {
			return err
		}
	default:
		log.Debugf("skipping repo-init statement %q", st.Text)
	}
	return nil
}
