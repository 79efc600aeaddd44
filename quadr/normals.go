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

	"github.com/golang/geo/r3"
)

const rcpOverflow = 2.93873587705571876e-39

var unitX = r3.Vector{X: 1, Y: 0, Z: 0}

// computeFaceNormals batches the triangle edge cross products through the
// SoA kernel and normalizes, falling back to unit X on degenerate faces.
func computeFaceNormals(V []r3.Vector, F [][3]int) []r3.Vector {
	n := len(F)
	p0 := newSoa3(n)
	p1 := newSoa3(n)
	p2 := newSoa3(n)
	for f := range F {
		p0.set(f, V[F[f][0]])
		p1.set(f, V[F[f][1]])
		p2.set(f, V[F[f][2]])
	}
	e1 := newSoa3(n)
	e2 := newSoa3(n)
	BaseBatchSub(p1.x, p0.x, e1.x)
	BaseBatchSub(p1.y, p0.y, e1.y)
	BaseBatchSub(p1.z, p0.z, e1.z)
	BaseBatchSub(p2.x, p0.x, e2.x)
	BaseBatchSub(p2.y, p0.y, e2.y)
	BaseBatchSub(p2.z, p0.z, e2.z)
	cr := newSoa3(n)
	BaseBatchCrossProduct(e1.x, e1.y, e1.z, e2.x, e2.y, e2.z, cr.x, cr.y, cr.z)
	norm2 := make([]float64, n)
	BaseBatchDot(cr.x, cr.y, cr.z, cr.x, cr.y, cr.z, norm2)
	Nf := make([]r3.Vector, n)
	for f := 0; f < n; f++ {
		norm := math.Sqrt(norm2[f])
		if norm < rcpOverflow {
			Nf[f] = unitX
		} else {
			Nf[f] = cr.at(f).Mul(1 / norm)
		}
	}
	return Nf
}

// computeSmoothNormals accumulates face normals around each vertex with
// Thuermer-Wuethrich angle weights ("Computing Vertex Normals from Polygonal
// Facets", JGT 1998). fastAcos is fine here: the angles only act as weights.
func computeSmoothNormals(V []r3.Vector, F [][3]int, Nf []r3.Vector,
	V2E, E2E []int, nonManifold []bool) []r3.Vector {

	N := make([]r3.Vector, len(V))
	for i := range V {
		edge := V2E[i]
		if nonManifold[i] || edge == -1 {
			N[i] = unitX
			continue
		}
		stop := edge
		var normal r3.Vector
		for {
			idx := edge % 3
			f := edge / 3
			d0 := V[F[f][(idx+1)%3]].Sub(V[i])
			d1 := V[F[f][(idx+2)%3]].Sub(V[i])
			angle := fastAcos(d0.Dot(d1) / math.Sqrt(d0.Dot(d0)*d1.Dot(d1)))
			if !math.IsNaN(angle) && !math.IsInf(angle, 0) {
				normal = normal.Add(Nf[f].Mul(angle))
			}
			opp := E2E[edge]
			if opp == -1 {
				break
			}
			edge = dedgeNext3(opp)
			if edge == stop {
				break
			}
		}
		norm := normal.Norm()
		if norm > rcpOverflow {
			N[i] = normal.Mul(1 / norm)
		} else {
			N[i] = unitX
		}
	}
	return N
}

// computeVertexArea assigns each vertex the area of its barycentric cell:
// for every incident corner, the two triangles spanned by the vertex, the
// edge midpoints and the face centroid.
func computeVertexArea(V []r3.Vector, F [][3]int, V2E, E2E []int, nonManifold []bool) []float64 {
	A := make([]float64, len(V))
	for i := range V {
		edge := V2E[i]
		if nonManifold[i] || edge == -1 {
			continue
		}
		stop := edge
		area := 0.0
		for {
			ep := dedgePrev3(edge)
			en := dedgeNext3(edge)
			v := V[F[edge/3][edge%3]]
			vn := V[F[en/3][en%3]]
			vp := V[F[ep/3][ep%3]]

			faceCenter := v.Add(vp).Add(vn).Mul(1.0 / 3.0)
			prev := v.Add(vp).Mul(0.5)
			next := v.Add(vn).Mul(0.5)

			area += 0.5 * (v.Sub(prev).Cross(v.Sub(faceCenter)).Norm() +
				v.Sub(next).Cross(v.Sub(faceCenter)).Norm())

			opp := E2E[edge]
			if opp == -1 {
				break
			}
			edge = dedgeNext3(opp)
			if edge == stop {
				break
			}
		}
		A[i] = area
	}
	return A
}
