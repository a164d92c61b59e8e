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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	felixConfigExt = ".config"
	cfgExt         = ".cfg"
	propertiesExt  = ".properties"
)

var errConfigValue = errors.New("malformed configuration value")

// configFileExt returns the key/value configuration extension of name, if any.
func configFileExt(name string) (string, bool) {
	for _, ext := range []string{felixConfigExt, cfgExt, propertiesExt} {
		if strings.HasSuffix(name, ext) {
			return ext, true
		}
	}
	return "", false
}

// scriptsFromConfigFile reads the scripts property of a key/value
// configuration file. ".cfg" and ".properties" files hold plain values;
// ".config" files hold typed values such as "create path /a" or
// ["create path /a","create path /b"].
func scriptsFromConfigFile(ext string, data []byte) ([]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
		KeyValueDelimiters:      "=:",
	}, data)
	if err != nil {
		return nil, err
	}
	sec := f.Section(ini.DefaultSection)
	if !sec.HasKey(scriptsKey) {
		return nil, nil
	}
	raw := strings.TrimSpace(sec.Key(scriptsKey).String())
	if ext != felixConfigExt {
		if raw == "" {
			return nil, nil
		}
		return []string{raw}, nil
	}
	values, err := parseFelixValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scriptsKey, err)
	}
	var scripts []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			scripts = append(scripts, v)
		}
	}
	return scripts, nil
}

// parseFelixValue decodes a string, string array or string vector in the
// configuration admin file format. An optional one-letter type code may
// precede the value.
func parseFelixValue(v string) ([]string, error) {
	if len(v) > 1 && isTypeCode(v[0]) && strings.ContainsRune(`"[(`, rune(v[1])) {
		v = v[1:]
	}
	if v == "" {
		return nil, nil
	}
	switch v[0] {
	case '"':
		s, rest, err := readQuoted(v)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(rest) != "" {
			return nil, fmt.Errorf("%w: trailing %q", errConfigValue, rest)
		}
		return []string{s}, nil
	case '[', '(':
		closing := byte(']')
		if v[0] == '(' {
			closing = ')'
		}
		return readList(v[1:], closing)
	}
	return nil, fmt.Errorf("%w: %q", errConfigValue, v)
}

func isTypeCode(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func readList(v string, closing byte) ([]string, error) {
	var result []string
	for {
		v = strings.TrimLeft(v, " \t\r\n")
		if v == "" {
			return nil, fmt.Errorf("%w: unterminated list", errConfigValue)
		}
		if v[0] == closing {
			return result, nil
		}
		s, rest, err := readQuoted(v)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
		rest = strings.TrimLeft(rest, " \t\r\n")
		if strings.HasPrefix(rest, ",") {
			rest = rest[1:]
		}
		v = rest
	}
}

// readQuoted reads one double-quoted string with backslash escapes from the
// start of v and returns it with the remainder of v.
func readQuoted(v string) (string, string, error) {
	if v == "" || v[0] != '"' {
		return "", v, fmt.Errorf("%w: expected a quoted string at %q", errConfigValue, v)
	}
	var b strings.Builder
	for i := 1; i < len(v); i++ {
		switch c := v[i]; c {
		case '"':
			return b.String(), v[i+1:], nil
		case '\\':
			i++
			if i == len(v) {
				return "", "", fmt.Errorf("%w: dangling escape", errConfigValue)
			}
			switch e := v[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if i+4 >= len(v) {
					return "", "", fmt.Errorf("%w: short unicode escape", errConfigValue)
				}
				r, err := strconv.ParseUint(v[i+1:i+5], 16, 32)
				if err != nil {
					return "", "", fmt.Errorf("%w: %v", errConfigValue, err)
				}
				b.WriteRune(rune(r))
				i += 4
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("%w: unterminated string", errConfigValue)
}
