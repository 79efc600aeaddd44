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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// prepSquare runs the pipeline up to the flip-fix stage.
func prepSquare(t *testing.T) *Parametrizer {
	t.Helper()
	p := makeSquare(t)
	p.ComputeOrientationSingularities()
	p.ComputePositionSingularities()
	p.BuildEdgeInfo()
	for i := range p.EdgeDiff {
		p.EdgeDiff[i] = clampDiff(p.EdgeDiff[i])
	}
	if err := p.BuildIntegerConstraints(); err != nil {
		t.Fatalf("BuildIntegerConstraints failed: %v", err)
	}
	if err := p.ComputeMaxFlow(); err != nil {
		t.Fatalf("ComputeMaxFlow failed: %v", err)
	}
	return p
}

// forceZeroEdge rewrites the square's diffs into a closure-consistent state
// where the edge (0,1) has zero length: both faces still sum to zero in
// their frames.
func forceZeroEdge(p *Parametrizer) {
	p.EdgeDiff[0] = Vec2i{}      // (0,1)
	p.EdgeDiff[1] = Vec2i{0, 1}  // (1,2)
	p.EdgeDiff[2] = Vec2i{0, 1}  // (0,2), class-equal to (1,2) after collapse
	p.EdgeDiff[3] = Vec2i{-1, 0} // (2,3)
	p.EdgeDiff[4] = Vec2i{-1, 1} // (0,3)
}

func TestCollapseIdempotent(t *testing.T) {
	p := prepSquare(t)
	forceZeroEdge(p)

	st := newFlipFixState(p)
	if err := st.collapseZeroEdges(); err != nil {
		t.Fatalf("collapse failed: %v", err)
	}
	first := snapshotState(st)
	if err := st.collapseZeroEdges(); err != nil {
		t.Fatalf("second collapse failed: %v", err)
	}
	second := snapshotState(st)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("collapse not idempotent:\n%s", diff)
	}

	if st.tree.Parent(p.EdgeValues[0].X) != st.tree.Parent(p.EdgeValues[0].Y) {
		t.Errorf("zero edge endpoints not merged")
	}
}

func TestCollapseUnionsQuotientEdges(t *testing.T) {
	p := prepSquare(t)
	forceZeroEdge(p)

	st := newFlipFixState(p)
	if err := st.collapseZeroEdges(); err != nil {
		t.Fatalf("collapse failed: %v", err)
	}
	// Edges (1,2) and (0,2) became the same quotient DEdge; their classes
	// must be unioned with a rotation relating the diffs.
	r1 := getParents(st.parentEdge, 1)
	r2 := getParents(st.parentEdge, 2)
	if r1 != r2 {
		t.Fatalf("edges 1 and 2 not in one class: roots %d, %d", r1, r2)
	}
	// The rotation recorded at union time maps the surviving root diff onto
	// the absorbed edge's diff.
	o := getParentsOrient(st.parentEdge, 2)
	if rshift90(p.EdgeDiff[r1], o) != (Vec2i{0, 1}) {
		t.Errorf("class rotation broken: root diff %v orient %d", p.EdgeDiff[r1], o)
	}
}

func TestCheckMoveRejectKeepsDiffs(t *testing.T) {
	p := prepSquare(t)
	st := newFlipFixState(p)
	before := make([]Vec2i, len(p.EdgeDiff))
	copy(before, p.EdgeDiff)

	// The square is already flat and positive; every guarded move must be
	// rejected and leave the diffs untouched.
	for e := range p.EdgeDiff {
		p1 := st.tree.Parent(p.EdgeValues[e].X)
		p2 := st.tree.Parent(p.EdgeValues[e].Y)
		if p1 == p2 {
			continue
		}
		ok, err := st.checkMove(p1, p2, e, true)
		if err != nil {
			t.Fatalf("checkMove error: %v", err)
		}
		if ok {
			t.Fatalf("move on edge %d accepted on a flat square", e)
		}
	}
	if diff := cmp.Diff(before, p.EdgeDiff); diff != "" {
		t.Errorf("rejected moves modified diffs:\n%s", diff)
	}
}

func TestFixFlipAdvanceSquareNoFlips(t *testing.T) {
	p := prepSquare(t)
	if err := p.FixFlipAdvance(); err != nil {
		t.Fatalf("FixFlipAdvance failed: %v", err)
	}
	// No negative-area faces remain.
	for i := range p.F {
		d1 := rshift90(p.EdgeDiff[p.FaceEdgeIds[i][0]], p.FaceEdgeOrients[i][0])
		d2 := rshift90(p.EdgeDiff[p.FaceEdgeIds[i][2]], p.FaceEdgeOrients[i][2]).Neg()
		if d1.X*d2.Y-d1.Y*d2.X < 0 {
			t.Errorf("face %d still flipped", i)
		}
	}
	for e, d := range p.EdgeDiff {
		if d.X < -1 || d.X > 1 || d.Y < -1 || d.Y > 1 {
			t.Errorf("edge %d diff %v outside clamp", e, d)
		}
	}
}

// flipFixSnapshot flattens the mutable flip-fix structures for comparison.
type flipFixSnapshot struct {
	ParentEdge  [][2]int
	VertexRoots []int
	EdgeFaces   [][]int
}

func snapshotState(st *flipFixState) flipFixSnapshot {
	s := flipFixSnapshot{
		ParentEdge:  make([][2]int, len(st.parentEdge)),
		VertexRoots: make([]int, st.tree.Size()),
		EdgeFaces:   make([][]int, len(st.edgeToFaces)),
	}
	for i, pe := range st.parentEdge {
		s.ParentEdge[i] = [2]int{pe.p, pe.orient}
	}
	for i := range s.VertexRoots {
		s.VertexRoots[i] = st.tree.Parent(i)
	}
	for i := range st.edgeToFaces {
		s.EdgeFaces[i] = st.edgeToFaces[i].cloneItems()
	}
	return s
}
