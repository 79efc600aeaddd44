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
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

// pentagonAnnulus builds a compact quad annulus: inner pentagon 0..4 (the
// hole), outer pentagon 5..9 (the mesh border).
func pentagonAnnulus() *Parametrizer {
	p := NewParametrizer(Options{})
	numV := 10
	p.OCompact = make([]r3.Vector, numV)
	for i := 0; i < 5; i++ {
		a := 2 * math.Pi * float64(i) / 5
		p.OCompact[i] = r3.Vector{X: math.Cos(a), Y: math.Sin(a)}
		p.OCompact[i+5] = r3.Vector{X: 2 * math.Cos(a), Y: 2 * math.Sin(a)}
	}
	p.FCompact = [][4]int{
		{0, 1, 6, 5},
		{1, 2, 7, 6},
		{2, 3, 8, 7},
		{3, 4, 9, 8},
		{4, 0, 5, 9},
	}
	p.Tree = NewDisjointTree(numV)
	p.Tree.BuildCompactParent()
	p.boundaryClass = make([]bool, numV)
	for i := 5; i < 10; i++ {
		p.boundaryClass[i] = true
	}
	return p
}

func TestFixHolesPentagon(t *testing.T) {
	p := pentagonAnnulus()
	before := len(p.FCompact)
	if err := p.FixHoles(); err != nil {
		t.Fatalf("FixHoles failed: %v", err)
	}
	// A 5-vertex loop quadrangulates into one full quad plus one
	// degenerate (a,b,c,c) quad.
	if got := len(p.FCompact) - before; got != 2 {
		t.Fatalf("expected 2 fill quads, got %d: %v", got, p.FCompact[before:])
	}
	degenerate := 0
	for _, q := range p.FCompact[before:] {
		// Emitted as (a,b,c,c); a winding swap turns it into (a,c,c,b).
		if q[1] == q[2] || q[2] == q[3] {
			degenerate++
		}
		for _, v := range q {
			if v < 0 || v >= 5 {
				t.Errorf("fill quad %v uses non-hole vertex %d", q, v)
			}
		}
	}
	if degenerate != 1 {
		t.Errorf("expected exactly one degenerate quad, got %d", degenerate)
	}

	// Every inner pentagon edge now has both sides covered.
	count := make(map[DEdge]int)
	for _, q := range p.FCompact {
		for j := 0; j < 4; j++ {
			v1, v2 := q[j], q[(j+1)%4]
			if v1 == v2 {
				continue
			}
			count[MakeDEdge(v1, v2)]++
		}
	}
	for i := 0; i < 5; i++ {
		e := MakeDEdge(i, (i+1)%5)
		if count[e] < 1 || count[e] > 2 {
			t.Errorf("edge %v has %d incident quads", e, count[e])
		}
	}
}

func TestFixHolesSkipsMeshBorder(t *testing.T) {
	p := pentagonAnnulus()
	// Mark the hole vertices as border too: nothing must be filled.
	for i := 0; i < 5; i++ {
		p.boundaryClass[i] = true
	}
	before := len(p.FCompact)
	if err := p.FixHoles(); err != nil {
		t.Fatalf("FixHoles failed: %v", err)
	}
	if len(p.FCompact) != before {
		t.Errorf("border loops must stay open, added %d quads", len(p.FCompact)-before)
	}
}
