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

package report_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/violation"
)

var (
	pkgA = packageid.New("g", "a", "1")
	pkgB = packageid.New("g", "b", "1")
)

func v(check string, sev violation.Severity, desc string, pkgs ...packageid.PackageID) violation.Violation {
	return violation.Violation{Check: check, Severity: sev, Description: desc, Packages: pkgs}
}

func sample() []violation.Violation {
	return []violation.Violation{
		v("paths", violation.SeverityMinor, "minor a", pkgA),
		v("overlaps", violation.SeveritySevere, "severe b", pkgB),
		v("paths", violation.SeverityMajor, "global"),
		v("paths", violation.SeverityMajor, "both", pkgA, pkgB),
	}
}

func newReport(t *testing.T) *report.ScanReport {
	t.Helper()
	agg := report.NewAggregator("scan-1")
	for _, x := range sample() {
		if err := agg.Record(x); err != nil {
			t.Fatalf("Record(): %v", err)
		}
	}
	return agg.Finalize(report.OutcomeFinished, "")
}

func TestFinalizeIsIdempotent(t *testing.T) {
	agg := report.NewAggregator("scan-1")
	if err := agg.Record(v("c", violation.SeverityMinor, "x", pkgA)); err != nil {
		t.Fatalf("Record(): %v", err)
	}
	first := agg.Finalize(report.OutcomeFinished, "")
	second := agg.Finalize(report.OutcomeAborted, "ignored")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Finalize() second call (-first +second):\n%s", diff)
	}

	var b1, b2 bytes.Buffer
	if err := report.Write(&b1, first); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if err := report.Write(&b2, second); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if !bytes.Equal(b1.Bytes(), b2.Bytes()) {
		t.Errorf("reports differ:\n%s\n%s", b1.String(), b2.String())
	}
	if first.Outcome != report.OutcomeFinished {
		t.Errorf("Outcome = %s, want FINISHED", first.Outcome)
	}

	if err := agg.Record(v("c", violation.SeverityMinor, "late")); !errors.Is(err, report.ErrFinalized) {
		t.Errorf("Record() after Finalize error = %v, want %v", err, report.ErrFinalized)
	}
	if err := agg.Warn("late"); !errors.Is(err, report.ErrFinalized) {
		t.Errorf("Warn() after Finalize error = %v, want %v", err, report.ErrFinalized)
	}
	if len(first.Violations) != 1 {
		t.Errorf("report has %d violations, want 1", len(first.Violations))
	}
}

func TestFinalizedReportIsACopy(t *testing.T) {
	agg := report.NewAggregator("scan-1")
	if err := agg.Record(v("c", violation.SeverityMinor, "x", pkgA)); err != nil {
		t.Fatalf("Record(): %v", err)
	}
	if err := agg.Warn("note"); err != nil {
		t.Fatalf("Warn(): %v", err)
	}
	first := agg.Finalize(report.OutcomeFinished, "")
	want := agg.Finalize(report.OutcomeFinished, "")

	first.Outcome = report.OutcomeAborted
	first.Violations[0].Description = "changed"
	first.Violations[0].Packages[0] = pkgB
	first.Violations = append(first.Violations, v("c", violation.SeveritySevere, "added"))
	first.Warnings[0] = "changed"

	if diff := cmp.Diff(want, agg.Finalize(report.OutcomeFinished, "")); diff != "" {
		t.Errorf("Finalize() after changing a returned report (-want +got):\n%s", diff)
	}
}

func TestEmptyReport(t *testing.T) {
	r := report.NewAggregator("s").Finalize(report.OutcomeCancelled, "context canceled")
	var buf bytes.Buffer
	if err := report.Write(&buf, r); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	want := `{
  "scanId": "s",
  "outcome": "CANCELLED",
  "reason": "context canceled",
  "violations": []
}
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Write() (-want +got):\n%s", diff)
	}
}

func TestWriteRead(t *testing.T) {
	r := newReport(t)
	var buf bytes.Buffer
	if err := report.Write(&buf, r); err != nil {
		t.Fatalf("Write(): %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"severity": "SEVERE"`)) || !bytes.Contains(buf.Bytes(), []byte(`"g:b:1"`)) {
		t.Errorf("Write() output lacks the expected encodings:\n%s", buf.String())
	}
	got, err := report.Read(&buf)
	if err != nil {
		t.Fatalf("Read(): %v", err)
	}
	if diff := cmp.Diff(r, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Read(Write()) (-want +got):\n%s", diff)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := report.Read(bytes.NewBufferString(`{"violations":[{"severity":"FATAL"}]}`)); err == nil {
		t.Error("Read() of an unknown severity succeeded, want error")
	}
}

func TestViews(t *testing.T) {
	r := newReport(t)

	if got := r.MaxSeverity(); got != violation.SeveritySevere {
		t.Errorf("MaxSeverity() = %v, want SEVERE", got)
	}

	var atLeast []string
	for _, x := range r.AtLeast(violation.SeverityMajor) {
		atLeast = append(atLeast, x.Description)
	}
	if diff := cmp.Diff([]string{"severe b", "global", "both"}, atLeast); diff != "" {
		t.Errorf("AtLeast(MAJOR) (-want +got):\n%s", diff)
	}

	var byCheck []string
	for _, c := range r.ByCheck("overlaps", "unused") {
		byCheck = append(byCheck, c.Check)
		if c.Check == "paths" && len(c.Violations) != 3 {
			t.Errorf("ByCheck() paths has %d violations, want 3", len(c.Violations))
		}
	}
	if diff := cmp.Diff([]string{"overlaps", "unused", "paths"}, byCheck); diff != "" {
		t.Errorf("ByCheck() order (-want +got):\n%s", diff)
	}

	var byPackage []string
	for _, p := range r.ByPackage() {
		byPackage = append(byPackage, p.Package.String()+"="+p.MaxSeverity.String())
	}
	if diff := cmp.Diff([]string{"g:b:1=SEVERE", "g:a:1=MAJOR", "=MAJOR"}, byPackage); diff != "" {
		t.Errorf("ByPackage() (-want +got):\n%s", diff)
	}
}
