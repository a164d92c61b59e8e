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
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidConfig is returned for configuration documents that aren't JSON.
var ErrInvalidConfig = errors.New("check configuration is not valid JSON")

// Config is the opaque configuration document of one check. The engine
// stores it and hands it to the check's factory without interpreting it.
type Config struct {
	raw []byte
}

// NewConfig wraps a JSON document. An empty document is treated as "{}".
func NewConfig(raw []byte) (Config, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Config{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return Config{}, ErrInvalidConfig
	}
	return Config{raw: bytes.Clone(raw)}, nil
}

// MustConfig is like NewConfig but panics on invalid JSON.
func MustConfig(raw string) Config {
	c, err := NewConfig([]byte(raw))
	if err != nil {
		panic(err)
	}
	return c
}

// Raw returns the JSON document.
func (c Config) Raw() []byte {
	if len(c.raw) == 0 {
		return []byte("{}")
	}
	return bytes.Clone(c.raw)
}

func (c Config) String() string { return string(c.Raw()) }

// Get queries the document with a gjson path.
func (c Config) Get(path string) gjson.Result {
	return gjson.GetBytes(c.Raw(), path)
}

// Has reports whether path is set to a non-null value.
func (c Config) Has(path string) bool {
	r := c.Get(path)
	return r.Exists() && r.Type != gjson.Null
}

// Bool returns the boolean at path, or def if unset.
func (c Config) Bool(path string, def bool) bool {
	if !c.Has(path) {
		return def
	}
	return c.Get(path).Bool()
}

// Strings returns the string array at path. A single string is returned as a
// one-element array.
func (c Config) Strings(path string) []string {
	r := c.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if !r.IsArray() {
		return []string{r.String()}
	}
	var result []string
	for _, v := range r.Array() {
		result = append(result, v.String())
	}
	return result
}

// Overlay returns c with every top-level key of o replaced by o's value. Keys
// o doesn't set keep their value from c.
func (c Config) Overlay(o Config) (Config, error) {
	base := c.Raw()
	over := gjson.ParseBytes(o.Raw())
	if !over.IsObject() {
		return Config{}, fmt.Errorf("%w: overlay must be an object", ErrInvalidConfig)
	}
	var err error
	over.ForEach(func(k, v gjson.Result) bool {
		base, err = sjson.SetRawBytes(base, sjsonKey(k.String()), []byte(v.Raw))
		return err == nil
	})
	if err != nil {
		return Config{}, err
	}
	return NewConfig(base)
}

var sjsonKeyEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)

// sjsonKey escapes the path syntax characters of a literal object key.
func sjsonKey(k string) string { return sjsonKeyEscaper.Replace(k) }
