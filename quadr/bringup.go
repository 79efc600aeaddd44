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

// BringUpFields installs a usable set of collaborator fields without the
// external multigrid solvers: a tangent cross field seeded from the smooth
// normals and relaxed by a few 4-RoSy averaging sweeps, the position field
// anchored at the vertices, and unit scale. Production runs replace these
// with the real field optimizer's output.
func (p *Parametrizer) BringUpFields(smoothingSweeps int) {
	N := p.Hierarchy.N
	V := p.V
	Q := make([]r3.Vector, len(N))
	for i, n := range N {
		Q[i] = tangentOf(n)
	}

	adj := buildAdjacency(len(V), p.F)
	for sweep := 0; sweep < smoothingSweeps; sweep++ {
		for i := range Q {
			n := N[i]
			acc := Q[i]
			weight := 1.0
			for _, j := range adj[i] {
				qj := rotateVectorIntoPlane(Q[j], N[j], n)
				first, second := compatOrientationExtrinsic4(acc, n, qj, n)
				acc = first.Mul(weight).Add(second)
				weight += 1.0
				acc = acc.Sub(n.Mul(n.Dot(acc)))
				if nn := acc.Norm(); nn > rcpOverflow {
					acc = acc.Mul(1 / nn)
				} else {
					acc = tangentOf(n)
				}
			}
			Q[i] = acc
		}
	}

	O := make([]r3.Vector, len(V))
	copy(O, V)
	S := make([][2]float64, len(V))
	for i := range S {
		S[i] = [2]float64{1, 1}
	}
	p.Hierarchy.Q = Q
	p.Hierarchy.O = O
	p.Hierarchy.S = S
}

// tangentOf returns a unit tangent orthogonal to n, picked against n's
// least-dominant axis so the choice is stable.
func tangentOf(n r3.Vector) r3.Vector {
	axis := r3.Vector{X: 1}
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	if ay <= ax && ay <= az {
		axis = r3.Vector{Y: 1}
	} else if az <= ax && az <= ay {
		axis = r3.Vector{Z: 1}
	}
	t := axis.Sub(n.Mul(n.Dot(axis)))
	if nn := t.Norm(); nn > rcpOverflow {
		return t.Mul(1 / nn)
	}
	return r3.Vector{X: 1}
}
