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

// rshift90 rotates an integer 2-vector by r*90 degrees counter-clockwise.
func rshift90(v Vec2i, r int) Vec2i {
	if r&1 != 0 {
		v = Vec2i{-v.Y, v.X}
	}
	if r&2 != 0 {
		v = v.Neg()
	}
	return v
}

// rotate90By rotates tangent q around normal n by amount*90 degrees.
func rotate90By(q, n r3.Vector, amount int) r3.Vector {
	v := q
	if amount&1 != 0 {
		v = n.Cross(q)
	}
	if amount >= 2 {
		v = v.Mul(-1)
	}
	return v
}

func modulo(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// fastAcos is a 4-term polynomial approximation of acos with error below
// 1e-3 on [-1,1]. Only used where angles act as weights.
func fastAcos(x float64) float64 {
	negate := 0.0
	if x < 0 {
		negate = 1.0
	}
	x = math.Abs(x)
	ret := -0.0187293
	ret *= x
	ret += 0.0742610
	ret *= x
	ret -= 0.2121144
	ret *= x
	ret += 1.5707288
	ret *= math.Sqrt(1.0 - x)
	ret -= 2.0 * negate * ret
	return negate*math.Pi + ret
}

// compatOrientationExtrinsic4 returns the representatives of the two crosses
// that best align: the first from {q0, n0 x q0}, the second the matching
// (possibly negated) representative of the second cross.
func compatOrientationExtrinsic4(q0, n0, q1, n1 r3.Vector) (r3.Vector, r3.Vector) {
	a := [2]r3.Vector{q0, n0.Cross(q0)}
	b := [2]r3.Vector{q1, n1.Cross(q1)}
	bestScore := math.Inf(-1)
	bestA, bestB := 0, 0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			score := math.Abs(a[i].Dot(b[j]))
			if score > bestScore {
				bestA, bestB = i, j
				bestScore = score
			}
		}
	}
	if a[bestA].Dot(b[bestB]) < 0 {
		return a[bestA], b[bestB].Mul(-1)
	}
	return a[bestA], b[bestB]
}

// compatOrientationExtrinsicIndex4 returns the rotation indices (i, j) with
// i in {0,1} and j in {0..3} such that rotate90By(q0,n0,i) best aligns with
// rotate90By(q1,n1,j).
func compatOrientationExtrinsicIndex4(q0, n0, q1, n1 r3.Vector) (int, int) {
	a := [2]r3.Vector{q0, n0.Cross(q0)}
	b := [2]r3.Vector{q1, n1.Cross(q1)}
	bestScore := math.Inf(-1)
	bestA, bestB := 0, 0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			score := math.Abs(a[i].Dot(b[j]))
			if score > bestScore {
				bestA, bestB = i, j
				bestScore = score
			}
		}
	}
	if a[bestA].Dot(b[bestB]) < 0 {
		bestB += 2
	}
	return bestA, bestB
}

// middlePoint returns the point halfway between p0 and p1 pulled onto the
// intersection of their tangent planes.
func middlePoint(p0, n0, p1, n1 r3.Vector) r3.Vector {
	n0p0 := n0.Dot(p0)
	n0p1 := n0.Dot(p1)
	n1p0 := n1.Dot(p0)
	n1p1 := n1.Dot(p1)
	n0n1 := n0.Dot(n1)
	denom := 1.0 / (1.0 - n0n1*n0n1 + 1e-4)
	lambda0 := 2.0 * (n0p1 - n0p0 - n0n1*(n1p0-n1p1)) * denom
	lambda1 := 2.0 * (n1p0 - n1p1 - n0n1*(n0p1-n0p0)) * denom
	return p0.Add(p1).Mul(0.5).Sub(n0.Mul(lambda0).Add(n1.Mul(lambda1)).Mul(0.25))
}

// positionFloorIndex4 returns the lattice cell of p relative to the frame
// (q, n x q) anchored at o.
func positionFloorIndex4(o, q, n, p r3.Vector, invScaleX, invScaleY float64) Vec2i {
	t := n.Cross(q)
	d := p.Sub(o)
	return Vec2i{
		int(math.Floor(q.Dot(d) * invScaleX)),
		int(math.Floor(t.Dot(d) * invScaleY)),
	}
}

// compatPositionExtrinsicIndex4 returns the integer lattice coordinates, in
// each endpoint's own frame, of the pair of lattice points closest to each
// other across the edge (p0,p1).
func compatPositionExtrinsicIndex4(
	p0, n0, q0, o0 r3.Vector,
	p1, n1, q1, o1 r3.Vector,
	scaleX, scaleY, invScaleX, invScaleY float64,
	scaleX1, scaleY1, invScaleX1, invScaleY1 float64,
) (Vec2i, Vec2i) {
	t0 := n0.Cross(q0)
	t1 := n1.Cross(q1)
	middle := middlePoint(p0, n0, p1, n1)
	o0p := positionFloorIndex4(o0, q0, n0, middle, invScaleX, invScaleY)
	o1p := positionFloorIndex4(o1, q1, n1, middle, invScaleX1, invScaleY1)

	bestCost := math.Inf(1)
	bestI, bestJ := 0, 0
	for i := 0; i < 4; i++ {
		o0t := o0.
			Add(q0.Mul(float64(i&1+o0p.X) * scaleX)).
			Add(t0.Mul(float64(i>>1+o0p.Y) * scaleY))
		for j := 0; j < 4; j++ {
			o1t := o1.
				Add(q1.Mul(float64(j&1+o1p.X) * scaleX1)).
				Add(t1.Mul(float64(j>>1+o1p.Y) * scaleY1))
			d := o0t.Sub(o1t)
			cost := d.Dot(d)
			if cost < bestCost {
				bestI, bestJ = i, j
				bestCost = cost
			}
		}
	}
	return Vec2i{bestI&1 + o0p.X, bestI>>1 + o0p.Y},
		Vec2i{bestJ&1 + o1p.X, bestJ>>1 + o1p.Y}
}

// rotateVectorIntoPlane parallel-transports q from the plane of sourceNormal
// into the plane of targetNormal.
func rotateVectorIntoPlane(q, sourceNormal, targetNormal r3.Vector) r3.Vector {
	cosTheta := sourceNormal.Dot(targetNormal)
	if cosTheta < 0.9999 {
		axis := sourceNormal.Cross(targetNormal)
		q = q.Mul(cosTheta).
			Add(axis.Cross(q)).
			Add(axis.Mul(axis.Dot(q) / (1.0 + cosTheta)))
	}
	return q
}

// travelField marches from p along direction dir for length total over the
// triangle mesh, crossing faces through E2E and parallel-transporting the
// frame. companion rides along and is returned transported into the final
// face's plane. f is the starting face and is updated to the face where the
// march stopped.
func travelField(p, dir r3.Vector, total float64, f *int,
	V []r3.Vector, F [][3]int, E2E []int, Nf []r3.Vector,
	triangleSpace [][2][3]float64, companion r3.Vector) (tx, ty float64, transported r3.Vector) {

	face := *f
	pos := p
	remain := total
	transported = companion
	for iter := 0; iter < 64 && remain > 1e-12; iter++ {
		n := Nf[face]
		d := dir.Sub(n.Mul(n.Dot(dir)))
		if d.Norm() < 1e-12 {
			break
		}
		d = d.Normalize()
		// Find the first crossing of the ray (pos, d) with the face's edges.
		bestT := remain
		bestEdge := -1
		for k := 0; k < 3; k++ {
			a := V[F[face][k]]
			b := V[F[face][(k+1)%3]]
			edge := b.Sub(a)
			// Solve pos + t*d = a + s*edge in the face plane.
			nrm := edge.Cross(n)
			denom := d.Dot(nrm)
			if math.Abs(denom) < 1e-12 {
				continue
			}
			t := a.Sub(pos).Dot(nrm) / denom
			if t <= 1e-10 || t >= bestT {
				continue
			}
			s := b.Sub(a).Dot(pos.Add(d.Mul(t)).Sub(a)) / edge.Dot(edge)
			if s < -1e-6 || s > 1.0+1e-6 {
				continue
			}
			bestT = t
			bestEdge = k
		}
		pos = pos.Add(d.Mul(bestT))
		remain -= bestT
		if bestEdge == -1 || remain <= 1e-12 {
			dir = d
			break
		}
		opp := E2E[3*face+bestEdge]
		if opp == -1 {
			dir = d
			break
		}
		next := opp / 3
		from := Nf[face]
		face = next
		dir = rotateVectorIntoPlane(d, from, Nf[face])
		transported = rotateVectorIntoPlane(transported, from, Nf[face])
	}
	*f = face
	// Project the end position into the face's tangent parameterization.
	rel := pos.Sub(V[F[face][0]])
	ts := triangleSpace[face]
	tx = ts[0][0]*rel.X + ts[0][1]*rel.Y + ts[0][2]*rel.Z
	ty = ts[1][0]*rel.X + ts[1][1]*rel.Y + ts[1][2]*rel.Z
	return tx, ty, transported
}
