// Copyright 2023 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quadr

import "testing"

func TestDisjointTreeCompact(t *testing.T) {
	tr := NewDisjointTree(6)
	tr.Merge(0, 1)
	tr.Merge(2, 3)
	tr.Merge(1, 3)

	if tr.Parent(0) != tr.Parent(2) {
		t.Errorf("0 and 2 should share a root")
	}
	if tr.Parent(4) == tr.Parent(0) {
		t.Errorf("4 should stay separate")
	}

	tr.BuildCompactParent()
	if got := tr.CompactNum(); got != 3 {
		t.Fatalf("CompactNum = %d, want 3", got)
	}
	if tr.Index(0) != tr.Index(3) {
		t.Errorf("merged vertices map to different compact ids")
	}
	seen := map[int]bool{tr.Index(0): true, tr.Index(4): true, tr.Index(5): true}
	if len(seen) != 3 {
		t.Errorf("expected 3 distinct compact ids, got %v", seen)
	}
}

func TestDisjointTreeMergeFromTo(t *testing.T) {
	tr := NewDisjointTree(4)
	tr.MergeFromTo(0, 1)
	if tr.Parent(0) != 1 {
		t.Errorf("MergeFromTo must root 0 under 1, got %d", tr.Parent(0))
	}
	tr.MergeFromTo(2, 3)
	tr.MergeFromTo(1, 3)
	if tr.Parent(0) != 3 {
		t.Errorf("chain must resolve to 3, got %d", tr.Parent(0))
	}
}

func TestDisjointOrientTreeMergeInvariant(t *testing.T) {
	// After Merge(a, b, oa, ob): Orient(a)+oa == Orient(b)+ob (mod 4).
	cases := [][4]int{
		{0, 1, 1, 3},
		{1, 2, 2, 0},
		{3, 4, 0, 1},
		{0, 4, 3, 3},
	}
	tr := NewDisjointOrientTree(5)
	for _, c := range cases {
		tr.Merge(c[0], c[1], c[2], c[3])
		got0 := (tr.Orient(c[0]) + c[2]) % 4
		got1 := (tr.Orient(c[1]) + c[3]) % 4
		if got0 != got1 {
			t.Errorf("Merge%v: Orient(a)+oa=%d, Orient(b)+ob=%d", c, got0, got1)
		}
	}
	// The first relation must survive later merges.
	if got0, got1 := (tr.Orient(0)+1)%4, (tr.Orient(1)+3)%4; got0 != got1 {
		t.Errorf("relation 0-1 lost: %d vs %d", got0, got1)
	}
	if tr.Parent(0) != tr.Parent(4) {
		t.Errorf("all faces should share one root")
	}
}
