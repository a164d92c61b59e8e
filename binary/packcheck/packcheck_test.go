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

package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/packcheck/packageid"
	"github.com/google/packcheck/testing/fakepackage"
)

func TestRun(t *testing.T) {
	packageDir := func(t *testing.T) string {
		t.Helper()
		dir := t.TempDir()
		fakepackage.WriteFile(t, dir, fakepackage.Package{
			ID:     packageid.New("acme", "site", "1.0"),
			Filter: []string{"/apps/site"},
			Files:  []fakepackage.File{{Path: "apps/site/index.html", Data: "<html/>"}},
		})
		return dir
	}

	testCases := []struct {
		desc string
		args []string
		want int
	}{
		{
			desc: "scan subcommand",
			args: []string{"packcheck", "scan", "--root", "{dir}", "--checks", "paths", "-o", filepath.Join("{dir}", "report.json"), "site.zip"},
			want: 0,
		},
		{
			desc: "no subcommand",
			args: []string{"packcheck", "--root", "{dir}", "--packages", "site.zip", "--output", "text=" + filepath.Join("{dir}", "report.txt")},
			want: 0,
		},
		{
			desc: "version",
			args: []string{"packcheck", "--version"},
			want: 0,
		},
		{
			desc: "no packages",
			args: []string{"packcheck", "scan", "--root", "{dir}"},
			want: 2,
		},
		{
			desc: "unknown flag",
			args: []string{"packcheck", "scan", "--frobnicate", "site.zip"},
			want: 2,
		},
		{
			// Flags after the first positional argument are read as package files,
			// none of which exist below the working directory.
			desc: "unknown subcommand is a package",
			args: []string{"packcheck", "unknown", "--root", "{dir}", "site.zip"},
			want: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			dir := packageDir(t)
			args := make([]string, len(tc.args))
			for i, arg := range tc.args {
				args[i] = strings.ReplaceAll(arg, "{dir}", dir)
			}
			if got := run(t.Context(), args); got != tc.want {
				t.Errorf("run(%v) returned unexpected exit code, got %d want %d", args, got, tc.want)
			}
		})
	}
}
