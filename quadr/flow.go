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

// The integer flow optimizer. Each edge-diff component is a variable bounded
// to [-1, 1]; each face contributes two loop-closure equations. A variable
// appears in at most two equations, so the system is a flow network: rows are
// nodes, variables are arcs, and moving a unit of flow along an arc shifts a
// unit of residual from one row to the other. Rows of singular faces carry
// their residual by design and participate only as conservation nodes.

type flowEdge struct {
	to, rev int
	cap     int
}

type maxFlowGraph struct {
	adj [][]flowEdge
}

func newMaxFlowGraph(n int) *maxFlowGraph {
	return &maxFlowGraph{adj: make([][]flowEdge, n)}
}

// addArc inserts a directed arc with the given capacity plus its zero-cap
// reverse, returning the arc's index pair for flow readout.
func (g *maxFlowGraph) addArc(from, to, cap int) (int, int) {
	g.adj[from] = append(g.adj[from], flowEdge{to: to, rev: len(g.adj[to]), cap: cap})
	g.adj[to] = append(g.adj[to], flowEdge{to: from, rev: len(g.adj[from]) - 1, cap: 0})
	return from, len(g.adj[from]) - 1
}

// maxFlow runs Dinic from s to t.
func (g *maxFlowGraph) maxFlow(s, t int) int {
	total := 0
	level := make([]int, len(g.adj))
	iter := make([]int, len(g.adj))
	queue := make([]int, 0, len(g.adj))
	for {
		for i := range level {
			level[i] = -1
		}
		level[s] = 0
		queue = append(queue[:0], s)
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			for _, e := range g.adj[u] {
				if e.cap > 0 && level[e.to] == -1 {
					level[e.to] = level[u] + 1
					queue = append(queue, e.to)
				}
			}
		}
		if level[t] == -1 {
			return total
		}
		for i := range iter {
			iter[i] = 0
		}
		for {
			f := g.augment(s, t, int(^uint(0)>>1), level, iter)
			if f == 0 {
				break
			}
			total += f
		}
	}
}

func (g *maxFlowGraph) augment(u, t, limit int, level, iter []int) int {
	if u == t {
		return limit
	}
	for ; iter[u] < len(g.adj[u]); iter[u]++ {
		e := &g.adj[u][iter[u]]
		if e.cap <= 0 || level[e.to] != level[u]+1 {
			continue
		}
		f := limit
		if e.cap < f {
			f = e.cap
		}
		f = g.augment(e.to, t, f, level, iter)
		if f > 0 {
			e.cap -= f
			g.adj[e.to][e.rev].cap += f
			return f
		}
	}
	return 0
}

// varSite locates one appearance of a variable: the row and the sign it
// carries there.
type varSite struct {
	row  int
	sign int
}

// solveLevel adjusts edgeDiff so every non-conserved row of the level sums
// to zero. Returns false if the level is infeasible.
func solveLevel(lvl *edgeLevel, edgeDiff []Vec2i) bool {
	getVar := func(v int) int {
		d := edgeDiff[v/2]
		if v%2 == 1 {
			return d.Y
		}
		return d.X
	}
	addVar := func(v, delta int) {
		d := &edgeDiff[v/2]
		if v%2 == 1 {
			d.Y += delta
		} else {
			d.X += delta
		}
	}

	sites := make(map[int][]varSite)
	for i, row := range lvl.rows {
		for _, t := range row.terms {
			sites[t.v] = append(sites[t.v], varSite{i, t.sign})
		}
	}
	residual := make([]int, len(lvl.rows))
	for i, row := range lvl.rows {
		residual[i] = rowResidual(row, edgeDiff)
	}

	// Variables appearing twice with the same sign (cut edges) are not
	// expressible as arcs; spend them first where they cancel two residual
	// units at once.
	varIDs := make([]int, 0, len(sites))
	for v := range sites {
		varIDs = append(varIDs, v)
	}
	sortInts(varIDs)
	for _, v := range varIDs {
		ss := sites[v]
		if len(ss) != 2 || ss[0].sign != ss[1].sign {
			continue
		}
		a, b := ss[0].row, ss[1].row
		if lvl.rows[a].conserved || lvl.rows[b].conserved {
			continue
		}
		s := ss[0].sign
		for residual[a]*s > 0 && residual[b]*s > 0 && getVar(v) > -1 {
			addVar(v, -1)
			residual[a] -= s
			residual[b] -= s
		}
		for residual[a]*s < 0 && residual[b]*s < 0 && getVar(v) < 1 {
			addVar(v, 1)
			residual[a] += s
			residual[b] += s
		}
	}

	// Build the flow network. Node ids: rows, then slack, source, sink.
	numRows := len(lvl.rows)
	slack := numRows
	src := numRows + 1
	dst := numRows + 2
	g := newMaxFlowGraph(numRows + 3)

	type varArc struct {
		v        int
		a        int  // row on the from side
		sa       int  // sign of v in row a
		fwdAt    [2]int
		bwdAt    [2]int
	}
	var arcs []varArc
	for _, v := range varIDs {
		ss := sites[v]
		if len(ss) == 2 && ss[0].sign == ss[1].sign {
			continue
		}
		a := ss[0]
		bRow := slack
		if len(ss) == 2 {
			bRow = ss[1].row
		}
		d := getVar(v)
		// Forward a->b moves residual out of a: decrease v when its sign in
		// a is positive, increase it otherwise.
		fwdCap := d + 1
		bwdCap := 1 - d
		if a.sign < 0 {
			fwdCap, bwdCap = bwdCap, fwdCap
		}
		arc := varArc{v: v, a: a.row, sa: a.sign}
		arc.fwdAt[0], arc.fwdAt[1] = g.addArc(a.row, bRow, fwdCap)
		arc.bwdAt[0], arc.bwdAt[1] = g.addArc(bRow, a.row, bwdCap)
		arcs = append(arcs, arc)
	}
	need := 0
	for i, row := range lvl.rows {
		if row.conserved {
			continue
		}
		if residual[i] > 0 {
			g.addArc(src, i, residual[i])
			need += residual[i]
		} else if residual[i] < 0 {
			g.addArc(i, dst, -residual[i])
		}
	}
	got := g.maxFlow(src, dst)
	if got != need {
		return false
	}

	// Read the flow back into variable adjustments: flow on a reverse edge
	// equals the amount pushed on its forward arc.
	for _, arc := range arcs {
		fwd := g.adj[arc.fwdAt[0]][arc.fwdAt[1]]
		bwd := g.adj[arc.bwdAt[0]][arc.bwdAt[1]]
		pushedFwd := g.adj[fwd.to][fwd.rev].cap
		pushedBwd := g.adj[bwd.to][bwd.rev].cap
		net := pushedFwd - pushedBwd
		if net == 0 {
			continue
		}
		if arc.sa > 0 {
			addVar(arc.v, -net)
		} else {
			addVar(arc.v, net)
		}
	}
	// The non-conserved rows must now close.
	for _, row := range lvl.rows {
		if row.conserved {
			continue
		}
		if rowResidual(row, edgeDiff) != 0 {
			return false
		}
	}
	return true
}

func sortInts(a []int) { sort.Ints(a) }

// optimizeIntegerConstraints runs the flow solve on every level, coarsest
// first, finishing on level 0 so the full constraint set holds on return.
func optimizeIntegerConstraints(h *Hierarchy, edgeDiff []Vec2i) error {
	for level := len(h.levels) - 1; level >= 0; level-- {
		if !solveLevel(h.levels[level], edgeDiff) {
			return pipelineError(FlowInfeasible, "optimizeIntegerConstraints", level)
		}
	}
	return nil
}

// ComputeMaxFlow resolves the remaining loop-closure residuals: it pairs
// every edge with its faces, downsamples the edge graph through the
// hierarchy, solves the integer flow on each level and propagates the
// solution back. On success every non-singular face closes exactly.
func (p *Parametrizer) ComputeMaxFlow() error {
	E2F := make([][2]int, len(p.EdgeDiff))
	for i := range E2F {
		E2F[i] = [2]int{-1, -1}
	}
	for i := range p.FaceEdgeIds {
		for j := 0; j < 3; j++ {
			e := p.FaceEdgeIds[i][j]
			if E2F[e][0] == -1 {
				E2F[e][0] = i
			} else {
				E2F[e][1] = i
			}
		}
	}
	sing := make(map[int]bool, p.Singularities.Len())
	for pair := p.Singularities.Oldest(); pair != nil; pair = pair.Next() {
		sing[pair.Key] = true
	}
	p.Hierarchy.DownsampleEdgeGraph(p.FaceEdgeOrients, p.FaceEdgeIds, E2F, p.EdgeDiff, sing)
	if err := optimizeIntegerConstraints(p.Hierarchy, p.EdgeDiff); err != nil {
		return err
	}
	return p.Hierarchy.UpdateGraphValue(p.FaceEdgeOrients, p.FaceEdgeIds, E2F, p.EdgeDiff)
}
