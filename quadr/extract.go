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
	"github.com/golang/geo/r3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// extractQuadMesh aggregates the quotient vertices into the compact arrays
// and enumerates the quad cells. Tree must already hold the zero-diff
// classes with compact ids assigned.
func (p *Parametrizer) extractQuadMesh() {
	O, N, Q := p.Hierarchy.O, p.Hierarchy.N, p.Hierarchy.Q
	numV := p.Tree.CompactNum()

	p.OCompact = make([]r3.Vector, numV)
	p.QCompact = make([]r3.Vector, numV)
	p.NCompact = make([]r3.Vector, numV)
	p.counter = make([]int, numV)
	for i := range O {
		c := p.Tree.Index(i)
		p.OCompact[c] = p.OCompact[c].Add(O[i])
		p.NCompact[c] = p.NCompact[c].Mul(float64(p.counter[c])).Add(N[i])
		if n := p.NCompact[c].Norm(); n > rcpOverflow {
			p.NCompact[c] = p.NCompact[c].Mul(1 / n)
		}
		if p.counter[c] == 0 {
			p.QCompact[c] = Q[i]
		} else {
			first, second := compatOrientationExtrinsic4(p.QCompact[c], p.NCompact[c], Q[i], N[i])
			p.QCompact[c] = first.Mul(float64(p.counter[c])).Add(second).Normalize()
		}
		p.counter[c]++
	}
	for i := range p.OCompact {
		p.OCompact[i] = p.OCompact[i].Mul(1 / float64(p.counter[i]))
	}

	// Quotient graph: neighbors over unit (axis-aligned) edges, and the full
	// neighbor set for reference.
	vertices := make([]map[int]bool, numV)
	completeSet := make([]map[int]bool, numV)
	for i := range vertices {
		vertices[i] = make(map[int]bool)
		completeSet[i] = make(map[int]bool)
	}
	for i := range p.EdgeDiff {
		p1 := p.Tree.Index(p.EdgeValues[i].X)
		p2 := p.Tree.Index(p.EdgeValues[i].Y)
		if p1 == p2 {
			continue
		}
		completeSet[p1][p2] = true
		completeSet[p2][p1] = true
		if p.EdgeDiff[i].L1() == 1 {
			vertices[p1][p2] = true
			vertices[p2][p1] = true
		}
	}

	// Quotient classes touching the input boundary keep their vertices: the
	// pruning rule below assumes interior connectivity.
	p.boundaryClass = make([]bool, numV)
	for i := range p.V {
		if p.Boundary[i] {
			p.boundaryClass[p.Tree.Index(i)] = true
		}
	}

	p.BadVertices = make([]bool, numV)
	queue := make([]int, 0, numV)
	for i := 0; i < numV; i++ {
		if len(vertices[i]) < 3 && !p.boundaryClass[i] {
			queue = append(queue, i)
			p.BadVertices[i] = true
		}
	}
	for qi := 0; qi < len(queue); qi++ {
		v := queue[qi]
		for v1 := range vertices[v] {
			delete(vertices[v1], v)
			if len(vertices[v1]) < 3 && !p.BadVertices[v1] && !p.boundaryClass[v1] {
				p.BadVertices[v1] = true
				queue = append(queue, v1)
			}
		}
	}

	badEdges := make(map[DEdge]bool)
	for i := range p.F {
		p0 := p.Tree.Index(p.F[i][0])
		p1 := p.Tree.Index(p.F[i][1])
		p2 := p.Tree.Index(p.F[i][2])
		if p0 == p1 || p1 == p2 || p2 == p0 {
			continue
		}
		var diff [3]Vec2i
		for j := 0; j < 3; j++ {
			eid := p.FaceEdgeIds[i][j]
			diff[j] = rshift90(p.EdgeDiff[eid], p.FaceEdgeOrients[i][j])
		}
		if -diff[0].X*diff[2].Y+diff[0].Y*diff[2].X < 0 {
			for j := 0; j < 3; j++ {
				t1 := p.Tree.Index(p.F[i][j])
				t2 := p.Tree.Index(p.F[i][(j+1)%3])
				if t1 != t2 {
					badEdges[MakeDEdge(t1, t2)] = true
				}
			}
		}
	}

	// Pair triangles across their unit-diagonal into quad cells. The ordered
	// map keeps emission in first-encounter order.
	type cell struct {
		a, b [3]int
		full bool
	}
	quadCells := orderedmap.New[DEdge, cell]()
	for i := range p.F {
		p0 := p.Tree.Index(p.F[i][0])
		p1 := p.Tree.Index(p.F[i][1])
		p2 := p.Tree.Index(p.F[i][2])
		if p0 == p1 || p1 == p2 || p2 == p0 ||
			p.BadVertices[p0] || p.BadVertices[p1] || p.BadVertices[p2] ||
			badEdges[MakeDEdge(p0, p1)] || badEdges[MakeDEdge(p1, p2)] || badEdges[MakeDEdge(p2, p0)] {
			continue
		}
		diff1 := p.EdgeDiff[p.FaceEdgeIds[i][0]]
		diff2 := p.EdgeDiff[p.FaceEdgeIds[i][1]]
		diff3 := p.EdgeDiff[p.FaceEdgeIds[i][2]]
		orient1 := p.FaceEdgeOrients[i][0]
		orient2 := p.FaceEdgeOrients[i][2]
		d1 := rshift90(diff1, orient1)
		d2 := rshift90(diff3.Neg(), orient2)
		if d1.X*d2.Y-d1.Y*d2.X < 0 {
			continue
		}
		var eid DEdge
		switch {
		case absInt(diff1.X) == 1 && absInt(diff1.Y) == 1:
			eid = MakeDEdge(p0, p1)
		case absInt(diff2.X) == 1 && absInt(diff2.Y) == 1:
			p0, p1, p2 = p1, p2, p0
			eid = MakeDEdge(p0, p1)
		case absInt(diff3.X) == 1 && absInt(diff3.Y) == 1:
			p0, p1, p2 = p2, p0, p1
			eid = MakeDEdge(p0, p1)
		default:
			continue
		}
		if c, ok := quadCells.Get(eid); !ok {
			quadCells.Set(eid, cell{a: [3]int{p0, p1, p2}})
		} else {
			c.b = [3]int{p0, p1, p2}
			c.full = true
			quadCells.Set(eid, c)
		}
	}
	p.FCompact = p.FCompact[:0]
	for pair := quadCells.Oldest(); pair != nil; pair = pair.Next() {
		c := pair.Value
		if c.full {
			p.FCompact = append(p.FCompact, [4]int{c.a[0], c.b[2], c.a[1], c.a[2]})
		}
	}
}
