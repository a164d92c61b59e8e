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

package testcollector_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/packcheck/plugin"
	"github.com/google/packcheck/stats"
	"github.com/google/packcheck/testing/testcollector"
)

func TestCollector(t *testing.T) {
	tests := []struct {
		name         string
		pkgStats     *stats.PackageStats
		instStats    *stats.InstallableStats
		checkErr     error
		wantFaults   int
		wantKind     stats.PackageKind
		wantDepth    int
		wantInstRslt stats.InstallableResult
	}{
		{
			name:       "scan target",
			pkgStats:   &stats.PackageStats{ID: "g:a:1", Kind: stats.PackageKindScanTarget, Depth: 1},
			wantKind:   stats.PackageKindScanTarget,
			wantDepth:  1,
			wantFaults: 0,
		},
		{
			name:         "embedded package with a faulting check",
			pkgStats:     &stats.PackageStats{ID: "g:emb:1", Kind: stats.PackageKindEmbedded, Depth: 2},
			instStats:    &stats.InstallableStats{Path: "/apps/x/install/emb.zip", Result: stats.InstallableResultApplied},
			checkErr:     errors.New("boom"),
			wantFaults:   1,
			wantKind:     stats.PackageKindEmbedded,
			wantDepth:    2,
			wantInstRslt: stats.InstallableResultApplied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := testcollector.New()
			collector.AfterPackageScanned(tt.pkgStats)
			if tt.instStats != nil {
				collector.AfterInstallableDrained(tt.instStats)
			}
			collector.AfterCheckEvent("check", "importedPath", time.Millisecond, tt.checkErr)
			collector.AfterScan(time.Second, &plugin.ScanStatus{Status: plugin.ScanStatusSucceeded})

			if got := collector.PackageKind(tt.pkgStats.ID); got != tt.wantKind {
				t.Errorf("PackageKind(%s) = %s, want %s", tt.pkgStats.ID, got, tt.wantKind)
			}
			if got := collector.PackageDepth(tt.pkgStats.ID); got != tt.wantDepth {
				t.Errorf("PackageDepth(%s) = %d, want %d", tt.pkgStats.ID, got, tt.wantDepth)
			}
			if tt.instStats != nil {
				if got := collector.InstallableResult(tt.instStats.Path); got != tt.wantInstRslt {
					t.Errorf("InstallableResult(%s) = %s, want %s", tt.instStats.Path, got, tt.wantInstRslt)
				}
			}
			if got := collector.CheckEvents("check"); got != 1 {
				t.Errorf("CheckEvents() = %d, want 1", got)
			}
			if got := collector.CheckFaults("check"); got != tt.wantFaults {
				t.Errorf("CheckFaults() = %d, want %d", got, tt.wantFaults)
			}
			if collector.ScanStatus() == nil {
				t.Error("ScanStatus() = nil after AfterScan")
			}
		})
	}
}
