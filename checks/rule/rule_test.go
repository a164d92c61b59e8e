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

package rule_test

import (
	"testing"

	"github.com/google/packcheck/checks/rule"
	"github.com/tidwall/gjson"
)

func TestFromJSON(t *testing.T) {
	testCases := []struct {
		desc    string
		json    string
		value   string
		want    string
		wantErr bool
	}{
		{
			desc:  "last match wins",
			json:  `[{"type":"deny","pattern":"/apps/.*"},{"type":"allow","pattern":"/apps/ok(/.*)?"}]`,
			value: "/apps/ok/x",
			want:  "ALLOW:/apps/ok(/.*)?",
		},
		{
			desc:  "regex is anchored",
			json:  `[{"type":"allow","pattern":"/apps"}]`,
			value: "/apps/x",
			want:  "DENY:.*",
		},
		{
			desc:  "glob",
			json:  `[{"type":"exclude","glob":"/libs/**"}]`,
			value: "/libs/a/b",
			want:  "DENY:/libs/**",
		},
		{
			desc:  "glob star stops at separator",
			json:  `[{"type":"exclude","glob":"/libs/*"}]`,
			value: "/libs/a/b",
			want:  "ALLOW:.*",
		},
		{
			desc:  "empty list defaults to allow",
			json:  `[]`,
			value: "/x",
			want:  "ALLOW:.*",
		},
		{desc: "unknown type", json: `[{"type":"maybe","pattern":"x"}]`, wantErr: true},
		{desc: "bad regex", json: `[{"type":"deny","pattern":"("}]`, wantErr: true},
		{desc: "not an array", json: `{"type":"deny"}`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			rules, err := rule.FromJSON(gjson.Parse(tc.json))
			if (err != nil) != tc.wantErr {
				t.Fatalf("FromJSON() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if got := rule.LastMatchOrDefault(rules, tc.value).String(); got != tc.want {
				t.Errorf("LastMatchOrDefault(%q) = %s, want %s", tc.value, got, tc.want)
			}
		})
	}
}

func TestLastMatchNone(t *testing.T) {
	rules := []rule.Rule{rule.MustNew(rule.Deny, "/a")}
	if r, ok := rule.LastMatch(rules, "/b"); ok {
		t.Errorf("LastMatch() = %v, want no match", r)
	}
}
