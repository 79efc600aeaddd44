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
	"log"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FixHoles reconstructs the boundary loops of the current compact quad mesh
// and closes each one greedily with additional quads. Loops shorter than two
// edges are reported as degenerate and skipped.
func (p *Parametrizer) FixHoles() error {
	numV := p.Tree.CompactNum()
	// side ownership per undirected edge: he index on the ascending side,
	// he index on the descending side.
	edgeToFaces := orderedmap.New[int64, [2]int]()
	directedEdges := make(map[int64]bool)
	hash := func(v1, v2 int) int64 { return int64(numV)*int64(v1) + int64(v2) }
	for i := range p.FCompact {
		for j := 0; j < 4; j++ {
			v1 := p.FCompact[i][j]
			v2 := p.FCompact[i][(j+1)%4]
			e := MakeDEdge(v1, v2)
			h := hash(e.X, e.Y)
			directedEdges[hash(v1, v2)] = true
			sides, ok := edgeToFaces.Get(h)
			if !ok {
				sides = [2]int{-1, -1}
			}
			if v1 < v2 {
				sides[0] = i*4 + j
			} else {
				sides[1] = i*4 + j
			}
			edgeToFaces.Set(h, sides)
		}
	}
	var boundaryEdges []DEdge
	for pair := edgeToFaces.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value[0] == -1 || pair.Value[1] == -1 {
			h := pair.Key
			boundaryEdges = append(boundaryEdges, DEdge{int(h / int64(numV)), int(h % int64(numV))})
		}
	}

	// Two boundary edges are adjacent when they share a quotient vertex.
	graph := make([][]int, len(boundaryEdges))
	for i := 0; i < len(boundaryEdges); i++ {
		for j := i + 1; j < len(boundaryEdges); j++ {
			e1, e2 := boundaryEdges[i], boundaryEdges[j]
			if e1.X == e2.X || e1.Y == e2.X || e1.X == e2.Y || e1.Y == e2.Y {
				graph[i] = append(graph[i], j)
				graph[j] = append(graph[j], i)
			}
		}
	}
	visited := make([]int, len(graph))
	for i := range visited {
		visited[i] = -1
	}
	loopID := 0
	for i := range graph {
		if visited[i] != -1 {
			continue
		}
		loopEdge := []int{i}
		visited[i] = loopID
		for {
			update := false
			vert := loopEdge[len(loopEdge)-1]
			for _, next := range graph[vert] {
				if visited[next] == -1 {
					update = true
					visited[next] = loopID
					loopEdge = append(loopEdge, next)
					break
				}
			}
			if !update {
				break
			}
		}
		if len(loopEdge) < 2 {
			if p.Opts.Verbose {
				log.Printf("quadr: %v", pipelineError(DegenerateLoop, "FixHoles", loopID))
			}
			continue
		}
		// Loops lying entirely on the input mesh boundary are the surface's
		// own border, not extraction damage; leave them open.
		if len(p.boundaryClass) > 0 {
			onBorder := true
			for _, e := range loopEdge {
				if !p.boundaryClass[boundaryEdges[e].X] || !p.boundaryClass[boundaryEdges[e].Y] {
					onBorder = false
					break
				}
			}
			if onBorder {
				continue
			}
		}
		loopVertices := make([]int, 0, len(loopEdge))
		for k := 0; k < len(loopEdge); k++ {
			e1 := loopEdge[k]
			e2 := loopEdge[(k+1)%len(loopEdge)]
			v1 := boundaryEdges[e1].X
			if v1 == boundaryEdges[e2].X || v1 == boundaryEdges[e2].Y {
				v1 = boundaryEdges[e1].Y
			}
			loopVertices = append(loopVertices, v1)
		}
		for len(loopVertices) > 0 {
			if len(loopVertices) <= 4 {
				var quad [4]int
				if len(loopVertices) == 4 {
					quad = [4]int{loopVertices[0], loopVertices[1], loopVertices[2], loopVertices[3]}
				} else if len(loopVertices) == 3 {
					quad = [4]int{loopVertices[0], loopVertices[1], loopVertices[2], loopVertices[2]}
				} else {
					break
				}
				if directedEdges[hash(quad[0], quad[1])] {
					quad[1], quad[3] = quad[3], quad[1]
				}
				p.FCompact = append(p.FCompact, quad)
				break
			}
			minDis := math.Inf(1)
			vStart := -1
			n := len(loopVertices)
			for k := 0; k < n; k++ {
				v1 := loopVertices[k]
				v2 := loopVertices[(k+3)%n]
				dis := p.OCompact[v1].Sub(p.OCompact[v2]).Norm()
				if dis < minDis {
					minDis = dis
					vStart = k
				}
			}
			quad := [4]int{
				loopVertices[vStart],
				loopVertices[(vStart+1)%n],
				loopVertices[(vStart+2)%n],
				loopVertices[(vStart+3)%n],
			}
			if directedEdges[hash(quad[0], quad[1])] {
				quad[1], quad[3] = quad[3], quad[1]
			}
			p.FCompact = append(p.FCompact, quad)
			d1 := (vStart + 1) % n
			d2 := (vStart + 2) % n
			if d1 > d2 {
				d1, d2 = d2, d1
			}
			loopVertices = append(loopVertices[:d2], loopVertices[d2+1:]...)
			loopVertices = append(loopVertices[:d1], loopVertices[d1+1:]...)
		}
		loopID++
	}
	return nil
}
