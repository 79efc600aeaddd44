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

func TestRshift90(t *testing.T) {
	v := Vec2i{1, 0}
	want := []Vec2i{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	for r := 0; r < 4; r++ {
		if got := rshift90(v, r); got != want[r] {
			t.Errorf("rshift90(%v, %d) = %v, want %v", v, r, got, want[r])
		}
	}
	// Four quarter turns are the identity, and rotations compose additively.
	for r1 := 0; r1 < 4; r1++ {
		for r2 := 0; r2 < 4; r2++ {
			a := rshift90(rshift90(Vec2i{2, -3}, r1), r2)
			b := rshift90(Vec2i{2, -3}, (r1+r2)%4)
			if a != b {
				t.Errorf("rotation composition broken at %d+%d: %v vs %v", r1, r2, a, b)
			}
		}
	}
}

func TestRotate90By(t *testing.T) {
	q := r3.Vector{X: 1}
	n := r3.Vector{Z: 1}
	want := []r3.Vector{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}
	for r := 0; r < 4; r++ {
		got := rotate90By(q, n, r)
		if got.Sub(want[r]).Norm() > 1e-15 {
			t.Errorf("rotate90By(X, Z, %d) = %v, want %v", r, got, want[r])
		}
	}
}

func TestFastAcosError(t *testing.T) {
	for x := -1.0; x <= 1.0; x += 1.0 / 256 {
		got := fastAcos(x)
		want := math.Acos(x)
		if math.Abs(got-want) > 1e-3 {
			t.Fatalf("fastAcos(%g) = %g, want %g (err %g)", x, got, want, math.Abs(got-want))
		}
	}
}

func TestCompatOrientationExtrinsicIndex4(t *testing.T) {
	n := r3.Vector{Z: 1}
	x := r3.Vector{X: 1}
	y := r3.Vector{Y: 1}

	first, second := compatOrientationExtrinsicIndex4(x, n, x, n)
	if first != 0 || second != 0 {
		t.Errorf("aligned crosses: got (%d, %d), want (0, 0)", first, second)
	}
	// The second cross rotated by 90 degrees still matches through its
	// other representative.
	first, second = compatOrientationExtrinsicIndex4(x, n, y, n)
	if rotate90By(x, n, first).Sub(rotate90By(y, n, second)).Norm() > 1e-12 {
		t.Errorf("representatives (%d, %d) do not align x with y", first, second)
	}
	// A flipped cross must align through negation.
	first, second = compatOrientationExtrinsicIndex4(x, n, x.Mul(-1), n)
	if rotate90By(x, n, first).Sub(rotate90By(x.Mul(-1), n, second)).Norm() > 1e-12 {
		t.Errorf("representatives (%d, %d) do not align x with -x", first, second)
	}
}

func TestCompatPositionExtrinsicIndex4(t *testing.T) {
	// Two points one lattice step apart along X, frames identical: the
	// index difference across the edge must be one step in X.
	n := r3.Vector{Z: 1}
	q := r3.Vector{X: 1}
	p0 := r3.Vector{}
	p1 := r3.Vector{X: 1}
	a, b := compatPositionExtrinsicIndex4(
		p0, n, q, p0,
		p1, n, q, p1,
		1, 1, 1, 1,
		1, 1, 1, 1)
	if diff := a.Sub(b); diff != (Vec2i{1, 0}) {
		t.Errorf("index diff = %v, want (1,0)", diff)
	}
}

func TestRotateVectorIntoPlane(t *testing.T) {
	q := r3.Vector{X: 1}
	src := r3.Vector{Z: 1}
	dst := r3.Vector{Y: 1}
	got := rotateVectorIntoPlane(q, src, dst)
	// X is on the rotation axis, so it must be unchanged.
	if got.Sub(q).Norm() > 1e-12 {
		t.Errorf("axis vector moved: %v", got)
	}
	// A vector orthogonal to the axis must land in the target plane.
	got = rotateVectorIntoPlane(r3.Vector{Y: 1}, src, dst)
	if math.Abs(got.Dot(dst)) > 1e-12 {
		t.Errorf("transported vector not in target plane: %v", got)
	}
	if math.Abs(got.Norm()-1) > 1e-12 {
		t.Errorf("transport changed the length: %v", got.Norm())
	}
}
