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

import "sort"

// DEdge is an undirected edge identified by its two vertex ids.
// X always holds the smaller id so DEdge values compare and hash
// order-insensitively.
type DEdge struct {
	X, Y int
}

// MakeDEdge canonicalizes the vertex pair.
func MakeDEdge(v1, v2 int) DEdge {
	if v1 > v2 {
		v1, v2 = v2, v1
	}
	return DEdge{v1, v2}
}

// Less orders DEdges lexicographically.
func (e DEdge) Less(o DEdge) bool {
	if e.X != o.X {
		return e.X < o.X
	}
	return e.Y < o.Y
}

// Vec2i is an integer 2-vector; edge diffs and lattice indices.
type Vec2i struct {
	X, Y int
}

func (v Vec2i) Add(o Vec2i) Vec2i { return Vec2i{v.X + o.X, v.Y + o.Y} }
func (v Vec2i) Sub(o Vec2i) Vec2i { return Vec2i{v.X - o.X, v.Y - o.Y} }
func (v Vec2i) Neg() Vec2i        { return Vec2i{-v.X, -v.Y} }
func (v Vec2i) IsZero() bool      { return v.X == 0 && v.Y == 0 }

// L1 is the taxicab norm, the lattice length of an edge diff.
func (v Vec2i) L1() int { return absInt(v.X) + absInt(v.Y) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Half-edge addressing: he = 3*face + corner.

func dedgeNext3(he int) int { return 3*(he/3) + (he+1)%3 }
func dedgePrev3(he int) int { return 3*(he/3) + (he+2)%3 }

// computeDirectGraph builds the half-edge indices for a triangle mesh:
// V2E maps each vertex to one outgoing half-edge (on a boundary vertex, the
// boundary half-edge so rotations via E2E cover every incident face), E2E
// pairs opposite half-edges (-1 at boundaries), boundary and nonManifold flag
// the vertices.
func computeDirectGraph(numV int, F [][3]int) (V2E, E2E []int, boundary, nonManifold []bool) {
	V2E = make([]int, numV)
	for i := range V2E {
		V2E[i] = -1
	}
	E2E = make([]int, 3*len(F))
	for i := range E2E {
		E2E[i] = -1
	}
	boundary = make([]bool, numV)
	nonManifold = make([]bool, numV)

	type directedEdge struct {
		u, v, he int
	}
	des := make([]directedEdge, 0, 3*len(F))
	for f := range F {
		for k := 0; k < 3; k++ {
			u := F[f][k]
			v := F[f][(k+1)%3]
			he := 3*f + k
			if V2E[u] == -1 {
				V2E[u] = he
			}
			des = append(des, directedEdge{u, v, he})
		}
	}
	sort.Slice(des, func(i, j int) bool {
		if des[i].u != des[j].u {
			return des[i].u < des[j].u
		}
		if des[i].v != des[j].v {
			return des[i].v < des[j].v
		}
		return des[i].he < des[j].he
	})
	find := func(u, v int) (int, int) {
		lo := sort.Search(len(des), func(i int) bool {
			return des[i].u > u || (des[i].u == u && des[i].v >= v)
		})
		hi := lo
		for hi < len(des) && des[hi].u == u && des[hi].v == v {
			hi++
		}
		return lo, hi
	}
	for f := range F {
		for k := 0; k < 3; k++ {
			u := F[f][k]
			v := F[f][(k+1)%3]
			he := 3*f + k
			lo, hi := find(u, v)
			olo, ohi := find(v, u)
			if hi-lo > 1 || ohi-olo > 1 {
				// More than two faces share the edge.
				nonManifold[u] = true
				nonManifold[v] = true
				continue
			}
			if ohi > olo {
				E2E[he] = des[olo].he
			}
		}
	}

	// Rotate each vertex's outgoing half-edge back to the boundary (if any)
	// and verify the rotation covers every incident half-edge.
	outCount := make([]int, numV)
	for f := range F {
		for k := 0; k < 3; k++ {
			outCount[F[f][k]]++
		}
	}
	for v := 0; v < numV; v++ {
		start := V2E[v]
		if start == -1 {
			continue
		}
		edge := start
		for {
			opp := E2E[dedgePrev3(edge)]
			if opp == -1 {
				boundary[v] = true
				V2E[v] = edge
				break
			}
			edge = opp
			if edge == start {
				break
			}
		}
		// Count coverage walking forward from the (possibly re-seated) start.
		covered := 0
		edge = V2E[v]
		stop := edge
		for {
			covered++
			opp := E2E[edge]
			if opp == -1 {
				break
			}
			edge = dedgeNext3(opp)
			if edge == stop {
				break
			}
		}
		if covered != outCount[v] {
			nonManifold[v] = true
		}
	}
	return V2E, E2E, boundary, nonManifold
}

// computeDirectGraphQuad is the quad-mesh analog over F_compact. Degenerate
// corners (repeated vertex) are skipped; such edges stay unpaired.
func computeDirectGraphQuad(numV int, F [][4]int) (V2E, E2E []int, boundary, nonManifold []bool) {
	V2E = make([]int, numV)
	for i := range V2E {
		V2E[i] = -1
	}
	E2E = make([]int, 4*len(F))
	for i := range E2E {
		E2E[i] = -1
	}
	boundary = make([]bool, numV)
	nonManifold = make([]bool, numV)

	type key struct{ u, v int }
	owner := make(map[key]int, 4*len(F))
	for f := range F {
		for k := 0; k < 4; k++ {
			u := F[f][k]
			v := F[f][(k+1)%4]
			if u == v {
				continue
			}
			he := 4*f + k
			if V2E[u] == -1 {
				V2E[u] = he
			}
			if _, dup := owner[key{u, v}]; dup {
				nonManifold[u] = true
				nonManifold[v] = true
				continue
			}
			owner[key{u, v}] = he
		}
	}
	for f := range F {
		for k := 0; k < 4; k++ {
			u := F[f][k]
			v := F[f][(k+1)%4]
			if u == v {
				continue
			}
			he := 4*f + k
			if opp, ok := owner[key{v, u}]; ok {
				E2E[he] = opp
			} else {
				boundary[u] = true
				boundary[v] = true
			}
		}
	}
	return V2E, E2E, boundary, nonManifold
}
