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

package zippkg

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/packcheck/archive"
)

type propertiesXML struct {
	XMLName xml.Name `xml:"properties"`
	Entries []struct {
		Key   string `xml:"key,attr"`
		Value string `xml:",chardata"`
	} `xml:"entry"`
}

func parseProperties(b []byte) (archive.Properties, error) {
	var p propertiesXML
	if err := xml.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	props := archive.Properties{}
	for _, e := range p.Entries {
		props[e.Key] = strings.TrimSpace(e.Value)
	}
	return props, nil
}

// parseFilter walks filter.xml token by token since the relative order of
// include and exclude rules is significant.
func parseFilter(b []byte) (*archive.WorkspaceFilter, error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	filter := &archive.WorkspaceFilter{}
	var current *archive.FilterSet
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "filter":
				root := attr(t, "root")
				if root == "" {
					return nil, errors.New("filter element without a root")
				}
				filter.Sets = append(filter.Sets, archive.FilterSet{Root: root, ImportMode: attr(t, "mode")})
				current = &filter.Sets[len(filter.Sets)-1]
			case "include", "exclude":
				if current == nil {
					return nil, fmt.Errorf("%s rule outside of a filter element", t.Name.Local)
				}
				rule, err := archive.NewFilterRule(t.Name.Local == "include", attr(t, "pattern"))
				if err != nil {
					return nil, err
				}
				current.Rules = append(current.Rules, rule)
			}
		case xml.EndElement:
			if t.Name.Local == "filter" {
				current = nil
			}
		}
	}
	return filter, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// parseContentXML reads the primary type and properties declared on the root
// element of a .content.xml file. Child elements are not imported.
func parseContentXML(b []byte) (primaryType string, props map[string]string, err error) {
	d := xml.NewDecoder(bytes.NewReader(b))
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			return "", nil, errors.New("no root element")
		}
		if err != nil {
			return "", nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		props = map[string]string{}
		for _, a := range start.Attr {
			if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
				continue
			}
			name := a.Name.Local
			if a.Name.Space != "" {
				name = a.Name.Space + ":" + name
			}
			value := stripTypeHint(a.Value)
			if name == "jcr:primaryType" {
				primaryType = value
				continue
			}
			props[name] = value
		}
		return primaryType, props, nil
	}
}

// stripTypeHint drops the "{Type}" prefix of typed property values.
func stripTypeHint(v string) string {
	if strings.HasPrefix(v, "{") {
		if end := strings.IndexByte(v, '}'); end > 0 {
			return v[end+1:]
		}
	}
	return v
}

// parseManifest reads the main section of a jar manifest.
func parseManifest(b []byte) (archive.Manifest, error) {
	m := archive.Manifest{}
	s := bufio.NewScanner(bytes.NewReader(b))
	last := ""
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			if last == "" {
				return nil, errors.New("manifest continuation line without a header")
			}
			m[last] += line[1:]
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		last = key
		m[key] = strings.TrimPrefix(value, " ")
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
