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

// Package violation defines the graded findings that checks emit.
package violation

import (
	"fmt"
	"strings"

	"github.com/google/packcheck/packageid"
)

// Severity grades a Violation. Higher values are more severe.
type Severity int

// Severity values.
const (
	SeverityUnspecified Severity = iota
	// SeverityMinor marks a finding that can usually be ignored.
	SeverityMinor
	// SeverityMajor marks a finding that should fail an acceptance test.
	SeverityMajor
	// SeveritySevere marks a finding that makes the scanned content unsafe to
	// install. Check faults are always SEVERE.
	SeveritySevere
)

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MINOR":
		return SeverityMinor, nil
	case "MAJOR":
		return SeverityMajor, nil
	case "SEVERE":
		return SeveritySevere, nil
	default:
		return SeverityUnspecified, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "MINOR"
	case SeverityMajor:
		return "MAJOR"
	case SeveritySevere:
		return "SEVERE"
	default:
		return "UNSPECIFIED"
	}
}

// IsLessSevereThan reports whether s ranks below other.
func (s Severity) IsLessSevereThan(other Severity) bool {
	return s < other
}

// Meets reports whether s is at least as severe as minimum.
func (s Severity) Meets(minimum Severity) bool {
	return s >= minimum
}

// Max returns the more severe of a and b.
func Max(a, b Severity) Severity {
	if a.IsLessSevereThan(b) {
		return b
	}
	return a
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	if t := string(text); t == "" || t == "UNSPECIFIED" {
		*s = SeverityUnspecified
		return nil
	}
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Violation is one finding reported by a check.
type Violation struct {
	// Check is the name of the check that reported the violation. It is
	// stamped by the engine, never by the check itself.
	Check       string   `json:"check,omitempty"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	// Packages the violation is attributed to. Empty for pass-global findings.
	Packages []packageid.PackageID `json:"packages"`
}

func (v Violation) String() string {
	if len(v.Packages) == 0 {
		return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Check, v.Description)
	}
	return fmt.Sprintf("[%s] %s: %s (%s)", v.Severity, v.Check, v.Description,
		strings.Join(packageid.Strings(v.Packages), ", "))
}

// Reporter is the reporting capability handed to a check for the duration of
// one event.
type Reporter interface {
	Report(sev Severity, description string, pkgs ...packageid.PackageID)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(sev Severity, description string, pkgs ...packageid.PackageID)

// Report implements Reporter.
func (f ReporterFunc) Report(sev Severity, description string, pkgs ...packageid.PackageID) {
	f(sev, description, pkgs...)
}
