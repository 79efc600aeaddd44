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

// DisjointTree is a plain union-find with path compression over dense ids.
type DisjointTree struct {
	parent  []int
	rank    []int
	indices []int
	total   int
}

// NewDisjointTree creates n singleton classes.
func NewDisjointTree(n int) *DisjointTree {
	t := &DisjointTree{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range t.parent {
		t.parent[i] = i
		t.rank[i] = 1
	}
	return t
}

// Parent returns the class root of x, compressing the path.
func (t *DisjointTree) Parent(x int) int {
	if t.parent[x] == x {
		return x
	}
	r := t.Parent(t.parent[x])
	t.parent[x] = r
	return r
}

// Merge unions the classes of x and y by rank.
func (t *DisjointTree) Merge(x, y int) {
	px, py := t.Parent(x), t.Parent(y)
	if px == py {
		return
	}
	if t.rank[px] < t.rank[py] {
		px, py = py, px
	}
	t.rank[px] += t.rank[py]
	t.parent[py] = px
}

// MergeFromTo re-roots x's class under y's root unconditionally.
func (t *DisjointTree) MergeFromTo(x, y int) {
	px, py := t.Parent(x), t.Parent(y)
	if px == py {
		return
	}
	t.parent[px] = py
}

// BuildCompactParent assigns dense ids 0..CompactNum()-1 to class roots.
func (t *DisjointTree) BuildCompactParent() {
	t.indices = make([]int, len(t.parent))
	t.total = 0
	for i := range t.parent {
		if t.Parent(i) == i {
			t.indices[i] = t.total
			t.total++
		}
	}
}

// Index returns the compact id of x's class. Valid after BuildCompactParent.
func (t *DisjointTree) Index(x int) int { return t.indices[t.Parent(x)] }

// CompactNum returns the number of classes counted by BuildCompactParent.
func (t *DisjointTree) CompactNum() int { return t.total }

// Size returns the number of elements.
func (t *DisjointTree) Size() int { return len(t.parent) }

// DisjointOrientTree is a union-find over faces where every link carries a
// rotation in {0,1,2,3}; rotations accumulate mod 4 along the find path, so
// Orient(f) is the rotation from f's frame into its root's frame.
type DisjointOrientTree struct {
	parent []int
	orient []int
	rank   []int
}

// NewDisjointOrientTree creates n singleton classes with zero rotation.
func NewDisjointOrientTree(n int) *DisjointOrientTree {
	t := &DisjointOrientTree{
		parent: make([]int, n),
		orient: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range t.parent {
		t.parent[i] = i
		t.rank[i] = 1
	}
	return t
}

// Parent returns the class root of x, compressing the path and folding the
// rotations encountered into x's link.
func (t *DisjointOrientTree) Parent(x int) int {
	if t.parent[x] == x {
		return x
	}
	r := t.Parent(t.parent[x])
	t.orient[x] = (t.orient[x] + t.orient[t.parent[x]]) % 4
	// The grandparent chain was compressed by the recursive call, so the
	// accumulated orient above must be folded before re-pointing.
	t.parent[x] = r
	return r
}

// Orient returns the accumulated rotation from x to its root.
func (t *DisjointOrientTree) Orient(x int) int {
	if t.parent[x] == x {
		return t.orient[x]
	}
	return (t.orient[x] + t.Orient(t.parent[x])) % 4
}

// Merge unions v0 and v1 such that afterwards
// Orient(v0)+orient0 == Orient(v1)+orient1 (mod 4).
func (t *DisjointOrientTree) Merge(v0, v1, orient0, orient1 int) {
	p0, p1 := t.Parent(v0), t.Parent(v1)
	if p0 == p1 {
		return
	}
	op0, op1 := t.Orient(v0), t.Orient(v1)
	if t.rank[p0] < t.rank[p1] {
		// Attach p0 under p1.
		t.parent[p0] = p1
		t.orient[p0] = (op1 + orient1 - op0 - orient0 + 8) % 4
		t.rank[p1] += t.rank[p0]
	} else {
		t.parent[p1] = p0
		t.orient[p1] = (op0 + orient0 - op1 - orient1 + 8) % 4
		t.rank[p0] += t.rank[p1]
	}
}

// Size returns the number of elements.
func (t *DisjointOrientTree) Size() int { return len(t.parent) }
