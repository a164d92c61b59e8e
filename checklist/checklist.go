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

// Package checklist loads named sets of configured checks from YAML, TOML or
// JSON documents. JSON checklists may carry comments and trailing commas.
//
// A checklist looks like:
//
//	name: acme-release
//	checks:
//	  - name: paths
//	    config:
//	      rules:
//	        - {type: deny, pattern: /etc/.*}
//	  - name: release-paths
//	    impl: expectPaths
//	    config: {expectedPaths: [/apps/acme]}
//	  - name: echo
//	    skip: true
//
// Checklists can be stacked with Merge. An entry of a later checklist that
// only names an earlier entry overlays it.
package checklist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/packcheck/check"
	"github.com/google/packcheck/check/list"
	"github.com/google/packcheck/log"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for checklist files with an unsupported
// extension.
var ErrUnknownFormat = errors.New("unknown checklist format")

// Format is the syntax of a checklist document.
type Format string

// Format values.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Spec configures one check of a checklist.
type Spec struct {
	// Name labels the entry. It names the built-in check unless Impl is set.
	Name string `yaml:"name" toml:"name"`
	// Impl is the built-in check to instantiate.
	Impl string `yaml:"impl" toml:"impl"`
	// Skip disables the entry.
	Skip   bool           `yaml:"skip" toml:"skip"`
	Config map[string]any `yaml:"config" toml:"config"`

	// overlays are applied to Config in order.
	overlays []map[string]any
}

// Checklist is a named, ordered list of check specs.
type Checklist struct {
	Name   string `yaml:"name" toml:"name"`
	Checks []Spec `yaml:"checks" toml:"checks"`
}

// unknownTOMLKeys drops the keys nested in check configurations, which are
// decoded into a free-form map.
func unknownTOMLKeys(keys []toml.Key) []toml.Key {
	var unknown []toml.Key
	for _, k := range keys {
		if len(k) > 2 && k[0] == "checks" && k[1] == "config" {
			continue
		}
		unknown = append(unknown, k)
	}
	return unknown
}

// Load reads a checklist file.
func Load(path string) (*Checklist, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cl, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("checklist %s: %w", path, err)
	}
	if cl.Name == "" {
		cl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return cl, nil
}

// Parse decodes a checklist document.
func Parse(data []byte, format Format) (*Checklist, error) {
	cl := &Checklist{}
	switch format {
	case FormatYAML, FormatJSON:
		if format == FormatJSON {
			data = jsonc.ToJSON(data)
		}
		// JSON documents are valid YAML.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cl); err != nil {
			return nil, err
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), cl)
		if err != nil {
			return nil, err
		}
		if undecoded := unknownTOMLKeys(md.Undecoded()); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	for i, s := range cl.Checks {
		if s.Name == "" && s.Impl == "" {
			return nil, fmt.Errorf("check #%d has neither name nor impl", i+1)
		}
	}
	return cl, nil
}

// ImplName returns the built-in check this entry instantiates.
func (s Spec) ImplName() string {
	if s.Impl != "" {
		return s.Impl
	}
	return s.Name
}

// CheckConfig converts the entry's configuration, with the configurations of
// merged overlays applied, to the JSON document the check receives.
func (s Spec) CheckConfig() (check.Config, error) {
	cfg, err := s.toConfig(s.Config)
	if err != nil {
		return check.Config{}, err
	}
	for _, o := range s.overlays {
		oc, err := s.toConfig(o)
		if err != nil {
			return check.Config{}, err
		}
		if cfg, err = cfg.Overlay(oc); err != nil {
			return check.Config{}, fmt.Errorf("check %s: %w", s.Name, err)
		}
	}
	return cfg, nil
}

func (s Spec) toConfig(m map[string]any) (check.Config, error) {
	if len(m) == 0 {
		return check.Config{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return check.Config{}, fmt.Errorf("check %s: config can't be converted to JSON: %w", s.Name, err)
	}
	return check.NewConfig(raw)
}

// Merge stacks checklists. The first one provides the base entries. Entries
// of later checklists are applied in order:
//   - an entry without impl that names an earlier entry overlays it: its skip
//     flag replaces the earlier one and its config keys replace the earlier
//     config keys,
//   - any other entry is added as it is.
func Merge(lists ...*Checklist) *Checklist {
	var names []string
	result := &Checklist{}
	index := map[string]int{}
	add := func(s Spec) {
		s.overlays = slices.Clone(s.overlays)
		index[s.Name] = len(result.Checks)
		result.Checks = append(result.Checks, s)
	}
	for i, cl := range lists {
		names = append(names, cl.Name)
		for _, s := range cl.Checks {
			if i == 0 {
				add(s)
				continue
			}
			j, ok := index[s.Name]
			if s.Impl != "" || !ok {
				add(s)
				continue
			}
			base := &result.Checks[j]
			base.Skip = s.Skip
			if len(s.Config) > 0 {
				base.overlays = append(base.overlays, s.Config)
			}
		}
	}
	result.Name = strings.Join(names, "+")
	return result
}

// Register instantiates the checklist's checks that aren't skipped and adds
// them to reg in checklist order.
func (c *Checklist) Register(reg *check.Registry) error {
	for _, s := range c.Checks {
		if s.Skip {
			log.Infof("checklist %s: skipping %s", c.Name, s.Name)
			continue
		}
		cfg, err := s.CheckConfig()
		if err != nil {
			return err
		}
		f, err := list.FactoryFromName(s.ImplName())
		if err != nil {
			return fmt.Errorf("checklist %s: %w", c.Name, err)
		}
		chk, err := f(cfg)
		if err != nil {
			return fmt.Errorf("checklist %s: creating %s: %w", c.Name, s.ImplName(), err)
		}
		if err := reg.Register(chk, cfg); err != nil {
			return fmt.Errorf("checklist %s: %w", c.Name, err)
		}
	}
	return nil
}
