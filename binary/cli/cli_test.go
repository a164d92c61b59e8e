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

package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/packcheck"
	"github.com/google/packcheck/binary/cli"
	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/report"
	"github.com/google/packcheck/violation"
)

func TestValidateFlags(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		flags   *cli.Flags
		wantErr error
	}{
		{
			desc: "Valid config",
			flags: &cli.Flags{
				Root:       "/",
				Packages:   []string{"a.zip", "pkgs/*.zip"},
				PreInstall: []string{"base.zip"},
				RunModes:   []string{"author,dev"},
				Checks:     []string{"paths,overlaps", "subpackages"},
				Output:     []string{"json=report.json", "text=report.txt", "plain.json"},
				FailOn:     "minor",
			},
			wantErr: nil,
		},
		{
			desc:    "Only --version set",
			flags:   &cli.Flags{PrintVersion: true},
			wantErr: nil,
		},
		{
			desc:    "No packages",
			flags:   &cli.Flags{Root: "/"},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Invalid package glob",
			flags:   &cli.Flags{Packages: []string{"pkgs/[a.zip"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Empty check name",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checks: []string{",paths"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Empty run mode",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, RunModes: []string{"author,"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Checks and checklist",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checks: []string{"paths"}, Checklists: []string{"list.yaml"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Checklist with unknown format",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checklists: []string{"list.ini"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Checklist",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checklists: []string{"list.toml"}},
			wantErr: nil,
		},
		{
			desc:    "Unknown output format",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Output: []string{"sarif=out.sarif"}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Output without path",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Output: []string{"json="}},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Unknown severity",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, FailOn: "critical"},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Negative prefetch",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, PrefetchWorkers: -1},
			wantErr: cmpopts.AnyError,
		},
		{
			desc:    "Negative log rotation",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, LogFile: "scan.log", LogMaxBackups: -1},
			wantErr: cmpopts.AnyError,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			err := cli.ValidateFlags(tc.flags)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Errorf("cli.ValidateFlags(%v) error got diff (-want +got):\n%s", tc.flags, cmp.Diff(tc.wantErr, err, cmpopts.EquateErrors()))
			}
		})
	}
}

func touch(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("os.MkdirAll(): %v", err)
		}
		if err := os.WriteFile(p, []byte("zip"), 0644); err != nil {
			t.Fatalf("os.WriteFile(): %v", err)
		}
	}
}

func TestGetScanConfig_Packages(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "pkgs/b.zip", "pkgs/a.zip", "pkgs/readme.txt", "pkgs/nested/c.zip", "base.zip")

	for _, tc := range []struct {
		desc    string
		flags   *cli.Flags
		want    []string
		wantErr bool
	}{
		{
			desc:  "Plain references are kept",
			flags: &cli.Flags{Root: dir, Packages: []string{"base.zip,missing.zip"}},
			want:  []string{"base.zip", "missing.zip"},
		},
		{
			desc:  "Glob is sorted and stays in its directory",
			flags: &cli.Flags{Root: dir, Packages: []string{"base.zip", "pkgs/*.zip"}},
			want:  []string{"base.zip", "pkgs/a.zip", "pkgs/b.zip"},
		},
		{
			desc:  "Super-asterisk crosses directories",
			flags: &cli.Flags{Root: dir, Packages: []string{"pkgs/**.zip"}},
			want:  []string{"pkgs/a.zip", "pkgs/b.zip", "pkgs/nested/c.zip"},
		},
		{
			desc:    "Glob without match",
			flags:   &cli.Flags{Root: dir, Packages: []string{"other/*.zip"}},
			wantErr: true,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := tc.flags.GetScanConfig()
			if (err != nil) != tc.wantErr {
				t.Fatalf("%v.GetScanConfig() error = %v, wantErr %v", tc.flags, err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if diff := cmp.Diff(tc.want, cfg.Packages); diff != "" {
				t.Errorf("%v.GetScanConfig() packages (-want +got):\n%s", tc.flags, diff)
			}
			if cfg.PackageRoot == nil || cfg.PackageRoot.Path != dir {
				t.Errorf("%v.GetScanConfig() package root = %v, want %s", tc.flags, cfg.PackageRoot, dir)
			}
		})
	}
}

func TestGetScanConfig_Checks(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "acceptance.yaml")
	list := `
checks:
  - name: no-secrets
    impl: paths
    config:
      rules:
        - type: deny
          pattern: /apps/.*/secret.*
  - name: subpackages
`
	if err := os.WriteFile(listPath, []byte(list), 0644); err != nil {
		t.Fatalf("os.WriteFile(): %v", err)
	}
	overlayPath := filepath.Join(dir, "team.jsonc")
	overlay := `{
  // Team additions on top of the acceptance checklist.
  "checks": [
    {"name": "subpackages", "skip": true},
    {"name": "overlaps"},
  ],
}`
	if err := os.WriteFile(overlayPath, []byte(overlay), 0644); err != nil {
		t.Fatalf("os.WriteFile(): %v", err)
	}

	for _, tc := range []struct {
		desc    string
		flags   *cli.Flags
		want    []string
		wantErr bool
	}{
		{
			desc:  "Default checks",
			flags: &cli.Flags{Packages: []string{"a.zip"}},
			want:  []string{"overlaps", "packageGraph", "slingJcrInstaller", "subpackages"},
		},
		{
			desc:  "Named checks keep their order",
			flags: &cli.Flags{Packages: []string{"a.zip"}, Checks: []string{"subpackages,paths", "subpackages"}},
			want:  []string{"subpackages", "paths"},
		},
		{
			desc:    "Unknown check",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checks: []string{"nope"}},
			wantErr: true,
		},
		{
			desc:  "Checklist",
			flags: &cli.Flags{Packages: []string{"a.zip"}, Checklists: []string{listPath}},
			want:  []string{"paths", "subpackages"},
		},
		{
			desc:  "Stacked checklists",
			flags: &cli.Flags{Packages: []string{"a.zip"}, Checklists: []string{listPath + "," + overlayPath}},
			want:  []string{"paths", "overlaps"},
		},
		{
			desc:    "Missing checklist",
			flags:   &cli.Flags{Packages: []string{"a.zip"}, Checklists: []string{filepath.Join(dir, "missing.yaml")}},
			wantErr: true,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := tc.flags.GetScanConfig()
			if (err != nil) != tc.wantErr {
				t.Fatalf("%v.GetScanConfig() error = %v, wantErr %v", tc.flags, err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			var got []string
			for _, c := range cfg.Registry.Checks() {
				got = append(got, c.Name())
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%v.GetScanConfig() checks (-want +got):\n%s", tc.flags, diff)
			}
		})
	}
}

func TestGetScanConfig_RunModesAndHistory(t *testing.T) {
	dir := t.TempDir()
	flags := &cli.Flags{
		Packages:  []string{"a.zip"},
		RunModes:  []string{"author,dev", "author"},
		HistoryDB: filepath.Join(dir, "history.db"),
	}
	cfg, err := flags.GetScanConfig()
	if err != nil {
		t.Fatalf("%v.GetScanConfig(): %v", flags, err)
	}
	if cfg.History == nil {
		t.Fatalf("%v.GetScanConfig() has no history store", flags)
	}
	defer cfg.History.Close()
	if diff := cmp.Diff([]string{"author", "dev"}, cfg.RunModes.Elements()); diff != "" {
		t.Errorf("%v.GetScanConfig() run modes (-want +got):\n%s", flags, diff)
	}
}

func TestFailOnSeverity(t *testing.T) {
	for _, tc := range []struct {
		failOn string
		want   violation.Severity
	}{
		{failOn: "", want: violation.SeverityMajor},
		{failOn: "minor", want: violation.SeverityMinor},
		{failOn: "SEVERE", want: violation.SeveritySevere},
	} {
		f := &cli.Flags{FailOn: tc.failOn}
		if got := f.FailOnSeverity(); got != tc.want {
			t.Errorf("FailOnSeverity(%q) = %v, want %v", tc.failOn, got, tc.want)
		}
	}
}

func scanResult() *packcheck.ScanResult {
	pkg := packageid.New("acme", "base", "1.0")
	return &packcheck.ScanResult{
		Report: &report.ScanReport{
			ScanID:  "scan-1",
			Outcome: report.OutcomeFinished,
			Violations: []violation.Violation{
				{Check: "paths", Severity: violation.SeverityMinor, Description: "odd path", Packages: []packageid.PackageID{pkg}},
				{Check: "packcheck", Severity: violation.SeveritySevere, Description: "package missing.zip: not found"},
			},
		},
	}
}

func TestWriteScanResults(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	plainPath := filepath.Join(dir, "plain.json")
	textPath := filepath.Join(dir, "report.txt")
	flags := &cli.Flags{Output: []string{"json=" + jsonPath, plainPath, "text=" + textPath}}
	res := scanResult()
	if err := flags.WriteScanResults(res); err != nil {
		t.Fatalf("%v.WriteScanResults(): %v", flags, err)
	}

	for _, p := range []string{jsonPath, plainPath} {
		f, err := os.Open(p)
		if err != nil {
			t.Fatalf("os.Open(%s): %v", p, err)
		}
		got, err := report.Read(f)
		f.Close()
		if err != nil {
			t.Fatalf("report.Read(%s): %v", p, err)
		}
		if diff := cmp.Diff(res.Report, got); diff != "" {
			t.Errorf("report in %s (-want +got):\n%s", p, diff)
		}
	}

	text, err := os.ReadFile(textPath)
	if err != nil {
		t.Fatalf("os.ReadFile(%s): %v", textPath, err)
	}
	want := strings.Join([]string{
		"scan scan-1: FINISHED",
		"(global) [SEVERE]",
		"  SEVERE packcheck: package missing.zip: not found",
		"acme:base:1.0 [MINOR]",
		"  MINOR paths: odd path",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(text)); diff != "" {
		t.Errorf("text report (-want +got):\n%s", diff)
	}
}

func TestWriteScanResultsWithoutReport(t *testing.T) {
	flags := &cli.Flags{Output: []string{"json=" + filepath.Join(t.TempDir(), "r.json")}}
	if err := flags.WriteScanResults(&packcheck.ScanResult{}); err == nil {
		t.Errorf("%v.WriteScanResults() succeeded for a scan without report", flags)
	}
}
