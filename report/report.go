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

// Package report aggregates the violations emitted during a scan pass into
// the final, read-only scan report.
package report

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/violation"
)

// ErrFinalized is returned when recording into an aggregator whose report
// was already produced.
var ErrFinalized = errors.New("scan report already finalized")

// Outcome is how a scan pass ended.
type Outcome string

const (
	// OutcomeFinished marks a pass that ran to completion.
	OutcomeFinished Outcome = "FINISHED"
	// OutcomeCancelled marks a pass cancelled between packages. The report
	// holds the violations collected until then.
	OutcomeCancelled Outcome = "CANCELLED"
	// OutcomeAborted marks a pass stopped by a fatal fault. Its report must
	// not be read as a clean result.
	OutcomeAborted Outcome = "ABORTED"
)

// ScanReport is the ordered list of violations of one pass. The JSON layout
// is consumed by downstream tooling and must stay stable.
type ScanReport struct {
	ScanID  string  `json:"scanId"`
	Outcome Outcome `json:"outcome"`
	// Reason explains a CANCELLED or ABORTED outcome.
	Reason     string                `json:"reason,omitempty"`
	Violations []violation.Violation `json:"violations"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// Complete reports whether the pass ran to completion.
func (r *ScanReport) Complete() bool { return r.Outcome == OutcomeFinished }

// MaxSeverity returns the highest severity reported, or SeverityUnspecified.
func (r *ScanReport) MaxSeverity() violation.Severity {
	result := violation.SeverityUnspecified
	for _, v := range r.Violations {
		result = violation.Max(result, v.Severity)
	}
	return result
}

// AtLeast returns the violations of at least the given severity, in emission
// order.
func (r *ScanReport) AtLeast(minimum violation.Severity) []violation.Violation {
	var result []violation.Violation
	for _, v := range r.Violations {
		if v.Severity.Meets(minimum) {
			result = append(result, v)
		}
	}
	return result
}

// CheckViolations are the violations of one check.
type CheckViolations struct {
	Check      string
	Violations []violation.Violation
}

// ByCheck groups violations per check. Checks named in order come first, in
// that order, followed by any other reporting check in first-emission order.
func (r *ScanReport) ByCheck(order ...string) []CheckViolations {
	index := make(map[string]int)
	var result []CheckViolations
	add := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(result)
		result = append(result, CheckViolations{Check: name})
		return len(result) - 1
	}
	for _, name := range order {
		add(name)
	}
	for _, v := range r.Violations {
		i := add(v.Check)
		result[i].Violations = append(result[i].Violations, v)
	}
	return result
}

// PackageViolations are the violations attributed to one package. The zero
// package collects pass-global violations.
type PackageViolations struct {
	Package     packageid.PackageID
	MaxSeverity violation.Severity
	Violations  []violation.Violation
}

// ByPackage groups violations per attributed package, most severe package
// first. Packages of equal severity keep their first-emission order. A
// violation attributed to several packages is listed under each.
func (r *ScanReport) ByPackage() []PackageViolations {
	index := make(map[packageid.PackageID]int)
	var result []PackageViolations
	add := func(id packageid.PackageID, v violation.Violation) {
		i, ok := index[id]
		if !ok {
			i = len(result)
			index[id] = i
			result = append(result, PackageViolations{Package: id})
		}
		result[i].Violations = append(result[i].Violations, v)
		result[i].MaxSeverity = violation.Max(result[i].MaxSeverity, v.Severity)
	}
	for _, v := range r.Violations {
		if len(v.Packages) == 0 {
			add(packageid.PackageID{}, v)
			continue
		}
		for _, id := range v.Packages {
			add(id, v)
		}
	}
	slices.SortStableFunc(result, func(a, b PackageViolations) int {
		return cmp.Compare(b.MaxSeverity, a.MaxSeverity)
	})
	return result
}

// Aggregator collects violations during a pass. It is safe for concurrent use.
type Aggregator struct {
	mu         sync.Mutex
	scanID     string
	violations []violation.Violation
	warnings   []string
	final      *ScanReport
}

// NewAggregator returns an empty aggregator for the given scan.
func NewAggregator(scanID string) *Aggregator {
	return &Aggregator{scanID: scanID}
}

// Record appends v. Violations can't be withdrawn.
func (a *Aggregator) Record(v violation.Violation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final != nil {
		return ErrFinalized
	}
	v.Packages = append([]packageid.PackageID{}, v.Packages...)
	a.violations = append(a.violations, v)
	return nil
}

// Warn appends a non-fatal note.
func (a *Aggregator) Warn(format string, args ...any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final != nil {
		return ErrFinalized
	}
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
	return nil
}

// Len returns the number of violations recorded so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.violations)
}

// Finalize produces the report. Only the first call decides the outcome;
// later calls return an equal report. Every call returns a copy, so callers
// can't change the finalized report.
func (a *Aggregator) Finalize(outcome Outcome, reason string) *ScanReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final == nil {
		a.final = &ScanReport{
			ScanID:     a.scanID,
			Outcome:    outcome,
			Reason:     reason,
			Violations: slices.Clip(a.violations),
			Warnings:   slices.Clip(a.warnings),
		}
		if a.final.Violations == nil {
			a.final.Violations = []violation.Violation{}
		}
	}
	return a.final.clone()
}

func (r *ScanReport) clone() *ScanReport {
	c := *r
	c.Violations = make([]violation.Violation, len(r.Violations))
	for i, v := range r.Violations {
		v.Packages = slices.Clone(v.Packages)
		c.Violations[i] = v
	}
	c.Warnings = slices.Clone(r.Warnings)
	return &c
}

// Write encodes r as indented JSON.
func Write(w io.Writer, r *ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Read decodes a report written by Write.
func Read(rd io.Reader) (*ScanReport, error) {
	r := &ScanReport{}
	if err := json.NewDecoder(rd).Decode(r); err != nil {
		return nil, fmt.Errorf("invalid scan report: %w", err)
	}
	if r.Violations == nil {
		r.Violations = []violation.Violation{}
	}
	return r, nil
}
