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

package lineage_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/packcheck/lineage"
	"github.com/google/packcheck/packageid"
)

func TestStack(t *testing.T) {
	top := packageid.New("g", "top", "1")
	sub := packageid.New("g", "sub", "1")
	emb := packageid.New("g", "emb", "1")

	s := &lineage.Stack{}
	if _, ok := s.Current(); ok {
		t.Fatal("Current() on empty stack returned ok")
	}
	s.Open(top)
	s.Open(sub)
	s.Open(emb)

	if got := s.Depth(); got != 3 {
		t.Errorf("Depth() = %d, want 3", got)
	}
	if got, _ := s.Current(); got != emb {
		t.Errorf("Current() = %v, want %v", got, emb)
	}
	if got, _ := s.Parent(); got != sub {
		t.Errorf("Parent() = %v, want %v", got, sub)
	}
	if got, _ := s.Root(); got != top {
		t.Errorf("Root() = %v, want %v", got, top)
	}
	if diff := cmp.Diff([]packageid.PackageID{top, sub, emb}, s.Lineage()); diff != "" {
		t.Errorf("Lineage() (-want +got):\n%s", diff)
	}

	for _, want := range []packageid.PackageID{emb, sub, top} {
		got, err := s.Close()
		if err != nil {
			t.Fatalf("Close(): %v", err)
		}
		if got != want {
			t.Errorf("Close() = %v, want %v", got, want)
		}
	}
	if _, err := s.Close(); !errors.Is(err, lineage.ErrEmptyStack) {
		t.Errorf("Close() on empty stack: got %v, want %v", err, lineage.ErrEmptyStack)
	}
}
