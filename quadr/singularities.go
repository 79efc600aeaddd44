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
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ComputeOrientationSingularities walks every face and sums the 4-way index
// differences of the cross field around its corners. A sum of 1 or 3 mod 4
// marks an orientation singularity with that defect. Sums outside [0,3]
// canonicalize by flipping the cross at the face's first corner.
func (p *Parametrizer) ComputeOrientationSingularities() {
	N, Q := p.Hierarchy.N, p.Hierarchy.Q
	p.Singularities = orderedmap.New[int, int]()
	for f := range p.F {
		index := 0
		for k := 0; k < 3; k++ {
			i := p.F[f][k]
			j := p.F[f][(k+1)%3]
			first, second := compatOrientationExtrinsicIndex4(Q[i], N[i], Q[j], N[j])
			index += second - first
		}
		indexMod := modulo(index, 4)
		if indexMod == 1 || indexMod == 3 {
			if index >= 4 || index < 0 {
				Q[p.F[f][0]] = Q[p.F[f][0]].Mul(-1)
			}
			p.Singularities.Set(f, indexMod)
		}
	}
}

// ComputePositionSingularities picks, per non-singular face, the corner
// rotations best aligning the three crosses (the 64-way search), then sums
// the integer position jumps along the corners. A nonzero sum, rotated into
// the first corner's frame, is the face's position defect.
func (p *Parametrizer) ComputePositionSingularities() {
	V, N, Q, O := p.Hierarchy.V, p.Hierarchy.N, p.Hierarchy.Q, p.Hierarchy.O

	p.PosSing = orderedmap.New[int, Vec2i]()
	p.PosRank = make([][3]int, len(p.F))
	p.PosIndex = make([][6]int, len(p.F))
	for f := range p.F {
		if _, ok := p.Singularities.Get(f); ok {
			continue
		}

		var index Vec2i
		i0, i1, i2 := p.F[f][0], p.F[f][1], p.F[f][2]

		q := [3]r3.Vector{Q[i0].Normalize(), Q[i1].Normalize(), Q[i2].Normalize()}
		n := [3]r3.Vector{N[i0], N[i1], N[i2]}
		o := [3]r3.Vector{O[i0], O[i1], O[i2]}
		v := [3]r3.Vector{V[i0], V[i1], V[i2]}

		var best [3]int
		bestDP := math.Inf(-1)
		for i := 0; i < 4; i++ {
			v0 := rotate90By(q[0], n[0], i)
			for j := 0; j < 4; j++ {
				v1 := rotate90By(q[1], n[1], j)
				for k := 0; k < 4; k++ {
					v2 := rotate90By(q[2], n[2], k)
					dp := math.Min(math.Min(v0.Dot(v1), v1.Dot(v2)), v2.Dot(v0))
					if dp > bestDP {
						bestDP = dp
						best = [3]int{i, j, k}
					}
				}
			}
		}
		p.PosRank[f] = best
		for k := 0; k < 3; k++ {
			q[k] = rotate90By(q[k], n[k], best[k])
		}

		for k := 0; k < 3; k++ {
			kn := (k + 1) % 3
			scaleX, scaleY := p.Hierarchy.Scale, p.Hierarchy.Scale
			scaleX1, scaleY1 := p.Hierarchy.Scale, p.Hierarchy.Scale
			if p.Opts.WithScale {
				scaleX *= p.Hierarchy.S[p.F[f][k]][0]
				scaleY *= p.Hierarchy.S[p.F[f][k]][1]
				scaleX1 *= p.Hierarchy.S[p.F[f][kn]][0]
				scaleY1 *= p.Hierarchy.S[p.F[f][kn]][1]
				if best[k]%2 != 0 {
					scaleX, scaleY = scaleY, scaleX
				}
				if best[kn]%2 != 0 {
					scaleX1, scaleY1 = scaleY1, scaleX1
				}
			}
			a, b := compatPositionExtrinsicIndex4(
				v[k], n[k], q[k], o[k],
				v[kn], n[kn], q[kn], o[kn],
				scaleX, scaleY, 1/scaleX, 1/scaleY,
				scaleX1, scaleY1, 1/scaleX1, 1/scaleY1)
			diff := a.Sub(b)
			index = index.Add(diff)
			p.PosIndex[f][k*2] = diff.X
			p.PosIndex[f][k*2+1] = diff.Y
		}

		if !index.IsZero() {
			p.PosSing.Set(f, rshift90(index, best[0]))
		}
	}
}
