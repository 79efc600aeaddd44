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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// soa3 is a structure-of-arrays view over a batch of 3-vectors, the layout
// the hwy kernels operate on.
type soa3 struct {
	x, y, z []float64
}

func newSoa3(n int) soa3 {
	return soa3{make([]float64, n), make([]float64, n), make([]float64, n)}
}

func (s soa3) set(i int, v r3.Vector) {
	s.x[i], s.y[i], s.z[i] = v.X, v.Y, v.Z
}

func (s soa3) at(i int) r3.Vector {
	return r3.Vector{X: s.x[i], Y: s.y[i], Z: s.z[i]}
}

// LoadOBJ reads vertex positions and triangle faces from a Wavefront OBJ
// stream. Polygonal faces are fan-triangulated; normals/texcoords are
// ignored.
func LoadOBJ(r io.Reader) ([]r3.Vector, [][3]int, error) {
	var V []r3.Vector
	var F [][3]int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("obj line %d: short vertex", lineno)
			}
			var coords [3]float64
			for i := 0; i < 3; i++ {
				c, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, nil, fmt.Errorf("obj line %d: %v", lineno, err)
				}
				coords[i] = c
			}
			V = append(V, r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
		case "f":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("obj line %d: short face", lineno)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, fld := range fields[1:] {
				// "v", "v/t", "v//n", "v/t/n" forms; only the vertex counts.
				s := fld
				if k := strings.IndexByte(s, '/'); k >= 0 {
					s = s[:k]
				}
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, nil, fmt.Errorf("obj line %d: %v", lineno, err)
				}
				if v < 0 {
					v += len(V) + 1
				}
				idx = append(idx, v-1)
			}
			for i := 1; i+1 < len(idx); i++ {
				F = append(F, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return V, F, nil
}

// LoadOBJFile is LoadOBJ over a path.
func LoadOBJFile(path string) ([]r3.Vector, [][3]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return LoadOBJ(f)
}

// normalizeMesh recenters the mesh at the origin and scales its largest
// bounding-box extent to 2 units.
func normalizeMesh(V []r3.Vector) {
	maxV := r3.Vector{X: -1e30, Y: -1e30, Z: -1e30}
	minV := r3.Vector{X: 1e30, Y: 1e30, Z: 1e30}
	for _, v := range V {
		maxV = r3.Vector{X: math.Max(maxV.X, v.X), Y: math.Max(maxV.Y, v.Y), Z: math.Max(maxV.Z, v.Z)}
		minV = r3.Vector{X: math.Min(minV.X, v.X), Y: math.Min(minV.Y, v.Y), Z: math.Min(minV.Z, v.Z)}
	}
	scale := math.Max(maxV.X-minV.X, math.Max(maxV.Y-minV.Y, maxV.Z-minV.Z)) * 0.5
	if scale == 0 {
		scale = 1
	}
	center := maxV.Add(minV).Mul(0.5)
	for i := range V {
		V[i] = V[i].Sub(center).Mul(1 / scale)
	}
}

// mergeClose collapses vertices whose coordinates round to the same cell of a
// threshold-sized grid and drops the faces that degenerate. Vertex order is preserved for the survivors.
func mergeClose(V []r3.Vector, F [][3]int, threshold float64) ([]r3.Vector, [][3]int) {
	inv := 1.0 / threshold
	type cell struct{ x, y, z int64 }
	remap := make([]int, len(V))
	seen := make(map[cell]int, len(V))
	var outV []r3.Vector
	for i, v := range V {
		c := cell{int64(math.Round(v.X * inv)), int64(math.Round(v.Y * inv)), int64(math.Round(v.Z * inv))}
		if j, ok := seen[c]; ok {
			remap[i] = j
			continue
		}
		seen[c] = len(outV)
		remap[i] = len(outV)
		outV = append(outV, v)
	}
	var outF [][3]int
	for _, f := range F {
		a, b, c := remap[f[0]], remap[f[1]], remap[f[2]]
		if a == b || b == c || c == a {
			continue
		}
		outF = append(outF, [3]int{a, b, c})
	}
	return outV, outF
}

// meshStatus carries the global size statistics of the input mesh.
type meshStatus struct {
	SurfaceArea       float64
	AverageEdgeLength float64
	MaxEdgeLength     float64
}

// computeMeshStatus batches the edge vectors through the SoA kernels and
// reduces areas and edge lengths serially.
func computeMeshStatus(V []r3.Vector, F [][3]int) meshStatus {
	n := len(F)
	var st meshStatus
	if n == 0 {
		return st
	}
	e1 := newSoa3(n)
	e2 := newSoa3(n)
	e3 := newSoa3(n)
	for f := range F {
		v0, v1, v2 := V[F[f][0]], V[F[f][1]], V[F[f][2]]
		e1.set(f, v1.Sub(v0))
		e2.set(f, v2.Sub(v0))
		e3.set(f, v2.Sub(v1))
	}
	cr := newSoa3(n)
	BaseBatchCrossProduct(e1.x, e1.y, e1.z, e2.x, e2.y, e2.z, cr.x, cr.y, cr.z)
	cross2 := make([]float64, n)
	BaseBatchDot(cr.x, cr.y, cr.z, cr.x, cr.y, cr.z, cross2)
	len1 := make([]float64, n)
	len2 := make([]float64, n)
	len3 := make([]float64, n)
	BaseBatchDot(e1.x, e1.y, e1.z, e1.x, e1.y, e1.z, len1)
	BaseBatchDot(e2.x, e2.y, e2.z, e2.x, e2.y, e2.z, len2)
	BaseBatchDot(e3.x, e3.y, e3.z, e3.x, e3.y, e3.z, len3)
	for f := 0; f < n; f++ {
		st.SurfaceArea += 0.5 * math.Sqrt(cross2[f])
		for _, l2 := range []float64{len1[f], len2[f], len3[f]} {
			l := math.Sqrt(l2)
			st.AverageEdgeLength += l
			if l > st.MaxEdgeLength {
				st.MaxEdgeLength = l
			}
		}
	}
	st.AverageEdgeLength /= float64(n * 3)
	return st
}

// SaveObj writes the compact quad mesh, skipping bad vertices and
// renumbering faces, in the OBJ text format.
func SaveObj(w io.Writer, OCompact []r3.Vector, FCompact [][4]int, badVertices []bool) error {
	bw := bufio.NewWriter(w)
	compact := make([]int, len(OCompact))
	acc := 0
	for i := range OCompact {
		if !badVertices[i] {
			acc++
		}
		compact[i] = acc
	}
	for i, o := range OCompact {
		if badVertices[i] {
			continue
		}
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", o.X, o.Y, o.Z); err != nil {
			return err
		}
	}
	for _, f := range FCompact {
		if _, err := fmt.Fprintf(bw, "f %d %d %d %d\n",
			compact[f[0]], compact[f[1]], compact[f[2]], compact[f[3]]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveObjFile is SaveObj over a path.
func SaveObjFile(path string, OCompact []r3.Vector, FCompact [][4]int, badVertices []bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SaveObj(f, OCompact, FCompact, badVertices); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
