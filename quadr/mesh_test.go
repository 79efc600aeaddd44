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
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
)

func TestLoadOBJ(t *testing.T) {
	obj := `
# a square
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3
f 1/1 3/2/1 4//2
`
	V, F, err := LoadOBJ(strings.NewReader(obj))
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if len(V) != 4 || len(F) != 2 {
		t.Fatalf("got %d vertices, %d faces", len(V), len(F))
	}
	if F[1] != [3]int{0, 2, 3} {
		t.Errorf("slash forms mishandled: %v", F[1])
	}
	if V[2] != (r3.Vector{X: 1, Y: 1}) {
		t.Errorf("vertex 2 = %v", V[2])
	}
}

func TestLoadOBJQuadFanTriangulation(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	_, F, err := LoadOBJ(strings.NewReader(obj))
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if len(F) != 2 {
		t.Fatalf("quad should fan into 2 triangles, got %d", len(F))
	}
}

func TestNormalizeMesh(t *testing.T) {
	V := []r3.Vector{{X: 10, Y: 10, Z: 10}, {X: 14, Y: 10, Z: 10}, {X: 10, Y: 12, Z: 10}}
	normalizeMesh(V)
	for _, v := range V {
		if math.Abs(v.X) > 1+1e-12 || math.Abs(v.Y) > 1+1e-12 || math.Abs(v.Z) > 1+1e-12 {
			t.Errorf("vertex %v outside the unit box", v)
		}
	}
	// The largest extent spans exactly two units.
	if got := V[1].X - V[0].X; math.Abs(got-2) > 1e-12 {
		t.Errorf("largest extent = %g, want 2", got)
	}
}

func TestMergeClose(t *testing.T) {
	V := []r3.Vector{{}, {X: 1e-9}, {X: 1}}
	F := [][3]int{{0, 1, 2}}
	outV, outF := mergeClose(V, F, 1e-6)
	if len(outV) != 2 {
		t.Fatalf("coincident vertices not merged: %d", len(outV))
	}
	if len(outF) != 0 {
		t.Errorf("degenerate face must be dropped, got %v", outF)
	}
}

func TestComputeMeshStatus(t *testing.T) {
	V := []r3.Vector{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	F := [][3]int{{0, 1, 2}, {0, 2, 3}}
	st := computeMeshStatus(V, F)
	if math.Abs(st.SurfaceArea-1) > 1e-12 {
		t.Errorf("surface area = %g, want 1", st.SurfaceArea)
	}
	if math.Abs(st.MaxEdgeLength-math.Sqrt2) > 1e-12 {
		t.Errorf("max edge = %g, want sqrt(2)", st.MaxEdgeLength)
	}
	want := (4 + 2*math.Sqrt2) / 6
	if math.Abs(st.AverageEdgeLength-want) > 1e-12 {
		t.Errorf("average edge = %g, want %g", st.AverageEdgeLength, want)
	}
}

func TestSaveObjSkipsBadVertices(t *testing.T) {
	O := []r3.Vector{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {Z: 5}}
	F := [][4]int{{0, 1, 2, 3}}
	bad := []bool{false, false, false, false, true}
	var buf bytes.Buffer
	if err := SaveObj(&buf, O, F, bad); err != nil {
		t.Fatalf("SaveObj failed: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "\nv ")+boolToInt(strings.HasPrefix(out, "v ")) != 4 {
		t.Errorf("expected 4 vertices, got:\n%s", out)
	}
	if !strings.Contains(out, "f 1 2 3 4") {
		t.Errorf("face renumbering wrong:\n%s", out)
	}
}

func TestSmoothNormalsFlat(t *testing.T) {
	p := makeSquare(t)
	for i, n := range p.Hierarchy.N {
		if n.Sub(r3.Vector{Z: 1}).Norm() > 1e-6 {
			t.Errorf("vertex %d normal = %v, want +Z", i, n)
		}
	}
	A := computeVertexArea(p.V, p.F, p.V2E, p.E2E, p.NonManifold)
	total := 0.0
	for _, a := range A {
		total += a
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("vertex areas sum to %g, want 1", total)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
