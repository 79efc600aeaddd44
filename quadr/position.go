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

// sparseMatrix is a square CSR-ish matrix assembled from per-row maps.
type sparseMatrix struct {
	rows []map[int]float64
}

func newSparseMatrix(n int) *sparseMatrix {
	rows := make([]map[int]float64, n)
	for i := range rows {
		rows[i] = make(map[int]float64)
	}
	return &sparseMatrix{rows: rows}
}

func (m *sparseMatrix) add(i, j int, v float64) { m.rows[i][j] += v }

func (m *sparseMatrix) mul(x, dst []float64) {
	for i, row := range m.rows {
		s := 0.0
		for j, v := range row {
			s += v * x[j]
		}
		dst[i] = s
	}
}

// conjugateGradient solves Ax=b for SPD A, starting from the x given.
func conjugateGradient(A *sparseMatrix, b, x []float64, maxIter int, tol float64) {
	n := len(b)
	r := make([]float64, n)
	q := make([]float64, n)
	A.mul(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	d := make([]float64, n)
	copy(d, r)
	rr := dotVec(r, r)
	if rr < tol {
		return
	}
	for iter := 0; iter < maxIter; iter++ {
		A.mul(d, q)
		dq := dotVec(d, q)
		if math.Abs(dq) < 1e-300 {
			return
		}
		alpha := rr / dq
		for i := range x {
			x[i] += alpha * d[i]
			r[i] -= alpha * q[i]
		}
		rrNew := dotVec(r, r)
		if rrNew < tol {
			return
		}
		beta := rrNew / rr
		for i := range d {
			d[i] = r[i] + beta*d[i]
		}
		rr = rrNew
	}
}

func dotVec(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// ComputePosition re-solves the per-vertex positions so every edge realizes
// its integer diff: each edge contributes a least-squares condition tying
// the two endpoints' tangent offsets through their compatibility frames,
// and the normal equations are solved over the two tangent unknowns per
// vertex.
func (p *Parametrizer) ComputePosition() {
	V, Q, N, O := p.Hierarchy.V, p.Hierarchy.Q, p.Hierarchy.N, p.Hierarchy.O
	n2 := len(V) * 2
	A := newSparseMatrix(n2)
	b := make([]float64, n2)
	for e := range p.EdgeDiff {
		v1 := p.EdgeValues[e].X
		v2 := p.EdgeValues[e].Y
		q1, q2 := Q[v1], Q[v2]
		n1, nn2 := N[v1], N[v2]
		q1y := n1.Cross(q1)
		q2y := nn2.Cross(q2)
		weights := [4]r3.Vector{q2, q2y, q1.Mul(-1), q1y.Mul(-1)}
		first, second := compatOrientationExtrinsicIndex4(q1, n1, q2, nn2)
		rankDiff := (second + 4 - first) % 4
		qdX := rotate90By(q2, nn2, rankDiff).Add(q1).Mul(0.5)
		qdY := rotate90By(q2y, nn2, rankDiff).Add(q1y).Mul(0.5)
		scaleX := p.Hierarchy.Scale
		scaleY := p.Hierarchy.Scale
		diff := p.EdgeDiff[e]
		C := qdX.Mul(float64(diff.X) * scaleX).
			Add(qdY.Mul(float64(diff.Y) * scaleY)).
			Add(V[v1]).Sub(V[v2])
		vid := [4]int{v2 * 2, v2*2 + 1, v1 * 2, v1*2 + 1}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				A.add(vid[i], vid[j], weights[i].Dot(weights[j]))
			}
			b[vid[i]] += weights[i].Dot(C)
		}
	}

	x := make([]float64, n2)
	for i := range O {
		q := Q[i]
		n := N[i]
		qy := n.Cross(q)
		d := O[i].Sub(V[i])
		x[i*2] = d.Dot(q)
		x[i*2+1] = d.Dot(qy)
	}
	// Isolated unknowns (no incident edge) keep their warm start.
	for i := 0; i < n2; i++ {
		if len(A.rows[i]) == 0 {
			A.add(i, i, 1)
			b[i] = x[i]
		}
	}
	conjugateGradient(A, b, x, 10*n2+30, 1e-24)

	for i := range O {
		q := Q[i]
		n := N[i]
		qy := n.Cross(q)
		O[i] = V[i].Add(q.Mul(x[i*2])).Add(qy.Mul(x[i*2+1]))
	}
}

// optimizeQuadPositions nudges the compact vertex positions toward the
// average of their quad neighbors within their tangent planes. Off by
// default; the upstream pipeline shipped with this stage disabled.
func (p *Parametrizer) optimizeQuadPositions() {
	if len(p.V2ECompact) == 0 {
		return
	}
	acc := make([]r3.Vector, len(p.OCompact))
	cnt := make([]int, len(p.OCompact))
	for _, f := range p.FCompact {
		for j := 0; j < 4; j++ {
			v1 := f[j]
			v2 := f[(j+1)%4]
			if v1 == v2 {
				continue
			}
			acc[v1] = acc[v1].Add(p.OCompact[v2])
			cnt[v1]++
			acc[v2] = acc[v2].Add(p.OCompact[v1])
			cnt[v2]++
		}
	}
	for i := range p.OCompact {
		if cnt[i] == 0 || p.BadVertices[i] {
			continue
		}
		target := acc[i].Mul(1 / float64(cnt[i]))
		d := target.Sub(p.OCompact[i])
		n := p.NCompact[i]
		d = d.Sub(n.Mul(n.Dot(d)))
		p.OCompact[i] = p.OCompact[i].Add(d.Mul(0.5))
	}
}
