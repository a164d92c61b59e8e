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

package packageid_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/packcheck/packageid"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		desc    string
		in      string
		want    packageid.PackageID
		wantErr error
	}{
		{
			desc: "full",
			in:   "my_packages:base:1.0",
			want: packageid.New("my_packages", "base", "1.0"),
		},
		{
			desc: "no version",
			in:   "my_packages:base",
			want: packageid.New("my_packages", "base", ""),
		},
		{
			desc: "empty group",
			in:   ":base:2",
			want: packageid.New("", "base", "2"),
		},
		{
			desc:    "missing name",
			in:      "group::1",
			wantErr: packageid.ErrInvalid,
		},
		{
			desc:    "too many segments",
			in:      "a:b:c:d",
			wantErr: packageid.ErrInvalid,
		},
		{
			desc:    "bare name",
			in:      "base",
			wantErr: packageid.ErrInvalid,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := packageid.Parse(tc.in)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Fatalf("Parse(%q) error: got %v, want %v", tc.in, err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	id := packageid.New("g", "n", "1.2.3")
	if got, want := id.String(), "g:n:1.2.3"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := packageid.MustParse(id.String()); got != id {
		t.Errorf("MustParse(String()) = %v, want %v", got, id)
	}
	if got := (packageid.PackageID{}).String(); got != "" {
		t.Errorf("zero String() = %q, want empty", got)
	}
}

func TestInstallationPath(t *testing.T) {
	testCases := []struct {
		id   packageid.PackageID
		want string
	}{
		{id: packageid.New("my_packages", "base", "1.0"), want: "/etc/packages/my_packages/base-1.0.zip"},
		{id: packageid.New("", "base", ""), want: "/etc/packages/base.zip"},
	}
	for _, tc := range testCases {
		if got := tc.id.InstallationPath(); got != tc.want {
			t.Errorf("%v.InstallationPath() = %q, want %q", tc.id, got, tc.want)
		}
	}
}
