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

package installable

import (
	"fmt"
	"strings"

	"github.com/google/packcheck/log"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/session"
	"github.com/tidwall/gjson"
)

const (
	// RepoInitPID is the factory PID of repository initializer configurations.
	RepoInitPID = "org.apache.sling.jcr.repoinit.RepositoryInitializer"
	// OsgiConfigType is the primary type of OSGi configuration nodes.
	OsgiConfigType = "sling:OsgiConfig"

	cfgJSONExt = ".cfg.json"
	scriptsKey = "scripts"
)

// Prepare implements Submitter. Package files (".zip") become embedded
// package installables; repository initializer configurations, either
// sling:OsgiConfig nodes or ".cfg.json", ".config", ".cfg" and ".properties"
// files, become repo-init installables.
// Other nodes are not installable and yield nil.
func (s *Simulator) Prepare(parent packageid.PackageID, node *session.Node) (*Installable, error) {
	if node == nil {
		return nil, nil
	}
	name := node.Name()
	inst := &Installable{Parent: parent, Path: node.Path, RunModes: s.runModes}
	if q := s.current(); q != nil {
		inst.ScanPackage = q.scanPackage
	}
	ext, isConfig := configFileExt(name)

	switch {
	case strings.HasSuffix(name, ".zip") && len(node.Data) > 0:
		inst.Kind = KindEmbeddedPackage
		inst.Data = node.Data
		return inst, nil
	case node.PrimaryType == OsgiConfigType:
		if FactoryPID(name) != RepoInitPID {
			return nil, nil
		}
		script := strings.TrimSpace(node.Properties[scriptsKey])
		if script == "" {
			log.Debugf("repo-init config %s has no scripts", node.Path)
			return nil, nil
		}
		inst.Kind = KindRepoInitScripts
		inst.Scripts = []string{script}
		return inst, nil
	case isConfig:
		if FactoryPID(strings.TrimSuffix(name, ext)) != RepoInitPID {
			return nil, nil
		}
		scripts, err := scriptsFromConfigFile(ext, node.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Path, err)
		}
		if len(scripts) == 0 {
			return nil, nil
		}
		inst.Kind = KindRepoInitScripts
		inst.Scripts = scripts
		return inst, nil
	case strings.HasSuffix(name, cfgJSONExt):
		if FactoryPID(strings.TrimSuffix(name, cfgJSONExt)) != RepoInitPID {
			return nil, nil
		}
		scripts, err := scriptsFromJSON(node.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Path, err)
		}
		if len(scripts) == 0 {
			return nil, nil
		}
		inst.Kind = KindRepoInitScripts
		inst.Scripts = scripts
		return inst, nil
	}
	return nil, nil
}

// FactoryPID returns the factory part of a configuration name such as
// "org.example.Factory~instance" or "org.example.Factory-instance".
func FactoryPID(name string) string {
	if i := strings.IndexByte(name, '~'); i >= 0 {
		return name[:i]
	}
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[:i]
	}
	return name
}

func scriptsFromJSON(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON configuration")
	}
	r := gjson.GetBytes(data, scriptsKey)
	switch {
	case r.IsArray():
		var scripts []string
		for _, v := range r.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				scripts = append(scripts, s)
			}
		}
		return scripts, nil
	case r.Type == gjson.String:
		if s := strings.TrimSpace(r.String()); s != "" {
			return []string{s}, nil
		}
	}
	return nil, nil
}
