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

// EstimateScale derives the per-vertex curvature field K from the cross
// field: a combined per-face orientation FQ, the directional slope FS from
// four short field marches around each face, and an area-weighted scatter of
// FS onto the vertices. Requires TriangleSpace (WithScale).
func (p *Parametrizer) EstimateScale() {
	mF := p.F
	mQ := p.Hierarchy.Q
	mN := p.Hierarchy.N
	mV := p.Hierarchy.V

	p.FS = make([][2]float64, len(mF))
	p.FQ = make([]r3.Vector, len(mF))
	for i := range mF {
		n := p.Nf[i]
		q1 := mQ[mF[i][0]]
		q2 := mQ[mF[i][1]]
		q3 := mQ[mF[i][2]]
		n1 := mN[mF[i][0]]
		n2 := mN[mF[i][1]]
		n3 := mN[mF[i][2]]
		q1n := rotateVectorIntoPlane(q1, n1, n)
		q2n := rotateVectorIntoPlane(q2, n2, n)
		q3n := rotateVectorIntoPlane(q3, n3, n)

		first, second := compatOrientationExtrinsic4(q1n, n, q2n, n)
		q := first.Add(second).Normalize()
		first, second = compatOrientationExtrinsic4(q, n, q3n, n)
		q = first.Mul(2).Add(second)
		q = q.Sub(n.Mul(q.Dot(n)))
		p.FQ[i] = q.Normalize()
	}

	for i := range mF {
		step := p.Hierarchy.Scale

		n := p.Nf[i]
		center := mV[mF[i][0]].Add(mV[mF[i][1]]).Add(mV[mF[i][2]]).Mul(1.0 / 3.0)
		qx := p.FQ[i]
		qy := n.Cross(qx)

		f := i
		_, _, qylUnfold := travelField(center, qx.Mul(-1), step, &f, mV, mF, p.E2E, p.Nf, p.TriangleSpace, qy)
		f = i
		_, _, qyrUnfold := travelField(center, qx, step, &f, mV, mF, p.E2E, p.Nf, p.TriangleSpace, qy)
		f = i
		_, _, qxlUnfold := travelField(center, qy.Mul(-1), step, &f, mV, mF, p.E2E, p.Nf, p.TriangleSpace, qx)
		f = i
		_, _, qxrUnfold := travelField(center, qy, step, &f, mV, mF, p.E2E, p.Nf, p.TriangleSpace, qx)
		dSx := qyrUnfold.Sub(qylUnfold).Dot(qx) / (2.0 * step)
		dSy := qxrUnfold.Sub(qxlUnfold).Dot(qy) / (2.0 * step)
		p.FS[i] = [2]float64{dSx, dSy}
	}

	if p.Hierarchy.K == nil {
		p.Hierarchy.K = make([][2]float64, len(mV))
	}
	areas := make([]float64, len(mV))
	for i := range mF {
		p1 := mV[mF[i][1]].Sub(mV[mF[i][0]])
		p2 := mV[mF[i][2]].Sub(mV[mF[i][0]])
		area := p1.Cross(p2).Norm()
		for j := 0; j < 3; j++ {
			v := mF[i][j]
			first, second := compatOrientationExtrinsicIndex4(p.FQ[i], p.Nf[i], mQ[v], mN[v])
			scaleX, scaleY := p.FS[i][0], p.FS[i][1]
			if first != second%2 {
				scaleX, scaleY = scaleY, scaleX
			}
			if second >= 2 {
				scaleX = -scaleX
				scaleY = -scaleY
			}
			p.Hierarchy.K[v][0] += area * scaleX
			p.Hierarchy.K[v][1] += area * scaleY
			areas[v] += area
		}
	}
	for i := range mV {
		if areas[i] != 0 {
			p.Hierarchy.K[i][0] /= areas[i]
			p.Hierarchy.K[i][1] /= areas[i]
		}
	}
}

// ScaleFieldFromCurvature turns the curvature field into a bounded
// anisotropic scale field for bring-up runs: unit scale bent by the local
// slope, clamped to [0.5, 2].
func ScaleFieldFromCurvature(K [][2]float64) [][2]float64 {
	S := make([][2]float64, len(K))
	for i := range K {
		S[i][0] = clampFloat(math.Exp(K[i][0]), 0.5, 2)
		S[i][1] = clampFloat(math.Exp(K[i][1]), 0.5, 2)
	}
	return S
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
