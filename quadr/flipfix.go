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
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// faceSet is a sorted int set; iteration order is ascending, which keeps the
// collapse and repair passes reproducible.
type faceSet struct {
	s []int
}

func (fs *faceSet) contains(x int) bool {
	i := sort.SearchInts(fs.s, x)
	return i < len(fs.s) && fs.s[i] == x
}

func (fs *faceSet) insert(x int) {
	i := sort.SearchInts(fs.s, x)
	if i < len(fs.s) && fs.s[i] == x {
		return
	}
	fs.s = append(fs.s, 0)
	copy(fs.s[i+1:], fs.s[i:])
	fs.s[i] = x
}

func (fs *faceSet) erase(x int) {
	i := sort.SearchInts(fs.s, x)
	if i < len(fs.s) && fs.s[i] == x {
		fs.s = append(fs.s[:i], fs.s[i+1:]...)
	}
}

func (fs *faceSet) clear() { fs.s = fs.s[:0] }

func (fs *faceSet) items() []int { return fs.s }

func (fs *faceSet) cloneItems() []int {
	out := make([]int, len(fs.s))
	copy(out, fs.s)
	return out
}

// edgeParent is a link of the edge union-find: parent edge plus the rotation
// relating the diffs of the two classes.
type edgeParent struct {
	p, orient int
}

func getParents(parents []edgeParent, j int) int {
	if j == parents[j].p {
		return j
	}
	k := getParents(parents, parents[j].p)
	parents[j].orient = (parents[j].orient + parents[parents[j].p].orient) % 4
	parents[j].p = k
	return k
}

func getParentsOrient(parents []edgeParent, j int) int {
	if j == parents[j].p {
		return parents[j].orient
	}
	return (parents[j].orient + getParentsOrient(parents, parents[j].p)) % 4
}

// flipFixState bundles the structures FixFlipAdvance mutates jointly.
type flipFixState struct {
	p           *Parametrizer
	parentEdge  []edgeParent
	edgeToFaces []faceSet
	tree        *DisjointTree
	// verticesToEdges[v] maps a neighbor root to the edge ids connecting
	// them; meaningful only at vertex roots.
	verticesToEdges []*orderedmap.OrderedMap[int, []int]
	edgeLen         int
}

func newFlipFixState(p *Parametrizer) *flipFixState {
	st := &flipFixState{
		p:           p,
		parentEdge:  make([]edgeParent, len(p.EdgeValues)),
		edgeToFaces: make([]faceSet, len(p.EdgeValues)),
		tree:        NewDisjointTree(len(p.V)),
		edgeLen:     1,
	}
	for i := range st.parentEdge {
		st.parentEdge[i] = edgeParent{i, 0}
	}
	for i := range p.FaceEdgeIds {
		for j := 0; j < 3; j++ {
			st.edgeToFaces[p.FaceEdgeIds[i][j]].insert(i)
		}
	}
	st.verticesToEdges = make([]*orderedmap.OrderedMap[int, []int], len(p.V))
	for i := range st.verticesToEdges {
		st.verticesToEdges[i] = orderedmap.New[int, []int]()
	}
	for i := range p.F {
		for j := 0; j < 3; j++ {
			v0 := p.F[i][j]
			v1 := p.F[i][(j+1)%3]
			eid := p.FaceEdgeIds[i][j]
			if _, ok := st.verticesToEdges[v0].Get(v1); !ok {
				st.verticesToEdges[v0].Set(v1, []int{eid})
			}
		}
	}
	return st
}

// collapseZeroEdges is phase 1: every zero-diff edge merges its endpoint
// classes.
func (st *flipFixState) collapseZeroEdges() error {
	p := st.p
	for i := range p.EdgeDiff {
		if p.EdgeDiff[i].IsZero() {
			if err := st.collapse(st.tree.Parent(p.EdgeValues[i].X), st.tree.Parent(p.EdgeValues[i].Y)); err != nil {
				return err
			}
		}
	}
	return nil
}

// FixFlipAdvance rewrites the edge graph so the quad topology can be read
// off: zero-diff edges collapse vertex classes, then local mass moves across
// the edge graph eliminate negative-area faces, and isolated quotient
// vertices are absorbed into their neighborhoods.
func (p *Parametrizer) FixFlipAdvance() error {
	F := p.F
	st := newFlipFixState(p)
	p.Tree = st.tree

	// Edges touching a singular face stay frozen during the wider second
	// repair round.
	p.edgeAroundSingularities = make(map[int]bool)
	for pair := p.Singularities.Oldest(); pair != nil; pair = pair.Next() {
		for j := 0; j < 3; j++ {
			p.edgeAroundSingularities[p.FaceEdgeIds[pair.Key][j]] = true
		}
	}

	// Phase 1: collapse all zero-length edges.
	if err := st.collapseZeroEdges(); err != nil {
		return err
	}

	// Phase 2: edge-driven repair, one round per edge length, with a hard
	// bound on accepted moves.
	maxMoves := 8 * len(p.EdgeValues)
	moves := 0
	for ; st.edgeLen <= 2; st.edgeLen++ {
		for {
			update := false
			for i := range st.parentEdge {
				if i != st.parentEdge[i].p {
					continue
				}
				if st.edgeLen > 1 && p.edgeAroundSingularities[i] {
					continue
				}
				p1 := st.tree.Parent(p.EdgeValues[i].X)
				p2 := st.tree.Parent(p.EdgeValues[i].Y)
				if p1 == p2 {
					continue
				}
				ok, err := st.checkMove(p1, p2, i, true)
				if err != nil {
					return err
				}
				if !ok {
					ok, err = st.checkMove(p2, p1, i, true)
					if err != nil {
						return err
					}
				}
				if ok {
					update = true
					moves++
					if moves > maxMoves {
						return pipelineError(RepairDivergent, "FixFlipAdvance", i)
					}
				}
			}
			if !update {
				break
			}
		}
		if st.edgeLen == 1 {
			remapped := make(map[int]bool, len(p.edgeAroundSingularities))
			keys := make([]int, 0, len(p.edgeAroundSingularities))
			for e := range p.edgeAroundSingularities {
				keys = append(keys, e)
			}
			sort.Ints(keys)
			for _, e := range keys {
				remapped[getParents(st.parentEdge, e)] = true
			}
			p.edgeAroundSingularities = remapped
		}
	}

	// Phase 3: one last sweep over faces still flipped.
	for i := range F {
		var diff [3]Vec2i
		var eid, orient [3]int
		for j := 0; j < 3; j++ {
			e := p.FaceEdgeIds[i][j]
			pe := getParents(st.parentEdge, e)
			eid[j] = pe
			orient[j] = (getParentsOrient(st.parentEdge, e) + p.FaceEdgeOrients[i][j]) % 4
			diff[j] = p.EdgeDiff[pe]
		}
		d1 := rshift90(diff[0], orient[0])
		d2 := rshift90(diff[2].Neg(), orient[2])
		if d1.X*d2.Y-d1.Y*d2.X < 0 {
			for j := 0; j < 3; j++ {
				if _, err := st.checkMove(st.tree.Parent(F[i][j]), st.tree.Parent(F[i][(j+1)%3]), eid[j], true); err != nil {
					return err
				}
				if _, err := st.checkMove(st.tree.Parent(F[i][(j+1)%3]), st.tree.Parent(F[i][j]), eid[j], true); err != nil {
					return err
				}
			}
		}
	}

	// Phase 4: absorb quotient vertices with fewer than 3 axis-aligned
	// neighbor relations.
	badVertices := make([]bool, len(st.verticesToEdges))
	for i := range st.verticesToEdges {
		if i != st.tree.Parent(i) {
			continue
		}
		counters := 0
		for pair := st.verticesToEdges[i].Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == i {
				continue
			}
			axis := false
			for _, l := range pair.Value {
				if p.EdgeDiff[l].X == 0 || p.EdgeDiff[l].Y == 0 {
					axis = true
				}
			}
			if axis {
				counters++
			}
		}
		if counters < 3 {
			badVertices[i] = true
		}
	}
	for {
		update := false
		for i := range st.verticesToEdges {
			if !badVertices[i] {
				continue
			}
			type candidate struct {
				neighbor int
				edges    []int
			}
			var collapseSet []candidate
			for pair := st.verticesToEdges[i].Oldest(); pair != nil; pair = pair.Next() {
				if badVertices[pair.Key] {
					continue
				}
				edges := make([]int, len(pair.Value))
				copy(edges, pair.Value)
				collapseSet = append(collapseSet, candidate{pair.Key, edges})
			}
			for _, c := range collapseSet {
				for _, q := range c.edges {
					ok, err := st.checkMove(i, c.neighbor, q, false)
					if err != nil {
						return err
					}
					if ok {
						badVertices[i] = false
						update = true
						break
					}
				}
			}
		}
		if !update {
			break
		}
	}

	// Propagate class diffs so non-root edges reflect their class.
	for i := range st.parentEdge {
		orient := getParentsOrient(st.parentEdge, i)
		pe := getParents(st.parentEdge, i)
		p.EdgeDiff[i] = rshift90(p.EdgeDiff[pe], orient)
	}
	return nil
}

// collapse merges vertex class v1 into v2 across their zero-diff edges,
// moving v1's adjacency to v2 and unioning corner edges of collapsed faces
// that became the same quotient DEdge.
func (st *flipFixState) collapse(v1, v2 int) error {
	if v1 == v2 {
		return nil
	}
	p := st.p
	F := p.F

	var collapsedFaces faceSet
	if l, ok := st.verticesToEdges[v1].Get(v2); ok {
		for _, collapsedEdge := range l {
			if p.EdgeDiff[collapsedEdge].IsZero() {
				for _, f := range st.edgeToFaces[collapsedEdge].items() {
					collapsedFaces.insert(f)
				}
				st.edgeToFaces[collapsedEdge].clear()
			}
		}
	}

	for pair := st.verticesToEdges[v1].Oldest(); pair != nil; pair = pair.Next() {
		m := pair.Key
		recList, _ := st.verticesToEdges[m].Get(v1)
		nextM := m
		if nextM != v1 {
			st.verticesToEdges[m].Delete(v1)
		} else {
			nextM = v2
		}
		var neighborEdges []int
		for _, li := range pair.Value {
			if !p.EdgeDiff[li].IsZero() || m != v2 {
				neighborEdges = append(neighborEdges, li)
			}
		}
		if cur, ok := st.verticesToEdges[v2].Get(nextM); ok {
			if nextM == v2 {
				// Same list on both sides of the self-relation.
				for _, li := range neighborEdges {
					cur = append(cur, li, li)
				}
				st.verticesToEdges[v2].Set(nextM, cur)
			} else {
				rev, _ := st.verticesToEdges[nextM].Get(v2)
				for _, li := range neighborEdges {
					cur = append(cur, li)
					rev = append(rev, li)
				}
				st.verticesToEdges[v2].Set(nextM, cur)
				st.verticesToEdges[nextM].Set(v2, rev)
			}
		} else {
			if len(neighborEdges) > 0 {
				st.verticesToEdges[v2].Set(nextM, neighborEdges)
			}
			if nextM != v2 {
				if _, ok := st.verticesToEdges[nextM].Get(v2); !ok {
					st.verticesToEdges[nextM].Set(v2, recList)
				}
			}
		}
	}
	st.tree.MergeFromTo(v1, v2)

	for _, f := range collapsedFaces.items() {
		for j := 0; j < 3; j++ {
			vv0 := st.tree.Parent(F[f][j])
			vv1 := st.tree.Parent(F[f][(j+1)%3])
			if vv0 == vv1 && p.EdgeDiff[getParents(st.parentEdge, p.FaceEdgeIds[f][j])].IsZero() {
				continue
			}
			peid := getParents(st.parentEdge, p.FaceEdgeIds[f][j])
			for {
				update := false
				if !st.edgeToFaces[peid].contains(f) {
					break
				}
				nonCollapse := 0
				for nj := 0; nj < 3; nj++ {
					if !p.EdgeDiff[getParents(st.parentEdge, p.FaceEdgeIds[f][nj])].IsZero() {
						nonCollapse++
					}
				}
				if nonCollapse == 3 {
					break
				}
				for nj := 0; nj < 3; nj++ {
					nv0 := st.tree.Parent(F[f][nj])
					nv1 := st.tree.Parent(F[f][(nj+1)%3])
					if nv0 == nv1 && p.EdgeDiff[getParents(st.parentEdge, p.FaceEdgeIds[f][nj])].IsZero() {
						continue
					}
					npeid := getParents(st.parentEdge, p.FaceEdgeIds[f][nj])
					if npeid == peid || MakeDEdge(nv0, nv1) != MakeDEdge(vv0, vv1) {
						continue
					}
					orient := 0
					diff1 := p.EdgeDiff[peid]
					diff2 := p.EdgeDiff[npeid]
					for orient < 4 && rshift90(diff1, orient) != diff2 {
						orient++
					}
					if orient == 4 {
						return pipelineError(OrientationMismatch, "collapse", npeid)
					}
					st.parentEdge[npeid] = edgeParent{peid, orient}
					for _, pf := range st.edgeToFaces[npeid].items() {
						st.edgeToFaces[peid].insert(pf)
					}
					st.edgeToFaces[peid].erase(f)
					st.edgeToFaces[npeid].clear()
					if l1, ok := st.verticesToEdges[nv0].Get(nv1); ok {
						st.verticesToEdges[nv0].Set(nv1, removeFirst(l1, npeid))
					}
					if l2, ok := st.verticesToEdges[nv1].Get(nv0); ok {
						st.verticesToEdges[nv1].Set(nv0, removeFirst(l2, npeid))
					}
					update = true
					break
				}
				if !update {
					break
				}
			}
		}
	}
	for _, f := range collapsedFaces.items() {
		for i := 0; i < 3; i++ {
			peid := getParents(st.parentEdge, p.FaceEdgeIds[f][i])
			st.edgeToFaces[peid].erase(f)
		}
	}
	st.verticesToEdges[v1] = orderedmap.New[int, []int]()
	return nil
}

func removeFirst(l []int, x int) []int {
	for i, v := range l {
		if v == x {
			return append(l[:i], l[i+1:]...)
		}
	}
	return l
}

// edgeChange records a class-root edge and the amount about to be subtracted
// from its diff.
type edgeChange struct {
	pid  int
	diff Vec2i
}

// extractEdgeSet grows, starting from pid, the set of edge changes that
// zeroes pid while re-closing every face it touches through a single escape
// edge incident to v1. An empty result means no bounded move exists.
func (st *flipFixState) extractEdgeSet(v1, v2, pid int) []edgeChange {
	p := st.p
	edgeSet := map[int]Vec2i{pid: p.EdgeDiff[pid]}
	change := []edgeChange{{pid, p.EdgeDiff[pid]}}

	queue := st.edgeToFaces[pid].cloneItems()
	for qi := 0; qi < len(queue); qi++ {
		f := queue[qi]
		var eids, orient [3]int
		var totalDiff Vec2i
		for i := 0; i < 3; i++ {
			eid := p.FaceEdgeIds[f][i]
			pe := getParents(st.parentEdge, eid)
			orient[i] = (getParentsOrient(st.parentEdge, eid) + p.FaceEdgeOrients[f][i]) % 4
			eids[i] = pe
			diff := p.EdgeDiff[pe]
			if c, ok := edgeSet[pe]; ok {
				diff = diff.Sub(c)
			}
			totalDiff = totalDiff.Add(rshift90(diff, orient[i]))
		}
		nextE := 0
		for nextE < 3 {
			touches := st.tree.Parent(p.EdgeValues[eids[nextE]].X) == v1 ||
				st.tree.Parent(p.EdgeValues[eids[nextE]].Y) == v1
			if touches {
				if _, in := edgeSet[eids[nextE]]; !in {
					break
				}
			}
			nextE++
		}
		if totalDiff.IsZero() {
			continue
		}
		if nextE == 3 {
			return nil
		}
		for e := nextE + 1; e < 3; e++ {
			if eids[e] == eids[nextE] {
				return nil
			}
		}
		changePid := eids[nextE]
		newDiff := rshift90(totalDiff, (4-orient[nextE])%4)
		if absInt(p.EdgeDiff[changePid].X-newDiff.X) > st.edgeLen ||
			absInt(p.EdgeDiff[changePid].Y-newDiff.Y) > st.edgeLen {
			return nil
		}
		change = append(change, edgeChange{changePid, newDiff})
		edgeSet[changePid] = newDiff
		for _, nf := range st.edgeToFaces[changePid].items() {
			if nf != f {
				queue = append(queue, nf)
			}
		}
	}
	return change
}

// negativeArea sums |area| over the negative-area faces in the set, reading
// corner edges 0 and 2 through the current class roots.
func (st *flipFixState) negativeArea(faces []int) int {
	p := st.p
	total := 0
	for _, f := range faces {
		eid0 := p.FaceEdgeIds[f][0]
		pid0 := getParents(st.parentEdge, eid0)
		eid1 := p.FaceEdgeIds[f][2]
		pid1 := getParents(st.parentEdge, eid1)
		orient0 := (getParentsOrient(st.parentEdge, eid0) + p.FaceEdgeOrients[f][0]) % 4
		orient1 := (getParentsOrient(st.parentEdge, eid1) + p.FaceEdgeOrients[f][2]) % 4
		diff1 := rshift90(p.EdgeDiff[pid0], orient0)
		diff2 := rshift90(p.EdgeDiff[pid1], orient1)
		area := -diff1.X*diff2.Y + diff1.Y*diff2.X
		if area < 0 {
			total -= area
		}
	}
	return total
}

// checkMove attempts to move the integer mass of edge pid away from v1
// toward v2. With checkFace set, the move is accepted only if the summed
// negative area over the touched faces strictly decreases.
func (st *flipFixState) checkMove(v1, v2, pid int, checkFace bool) (bool, error) {
	p := st.p
	change := st.extractEdgeSet(v1, v2, pid)
	if len(change) == 0 {
		return false, nil
	}
	var modified faceSet
	for _, e := range change {
		for _, f := range st.edgeToFaces[e.pid].items() {
			modified.insert(f)
		}
	}
	originalArea := st.negativeArea(modified.items())
	for _, c := range change {
		p.EdgeDiff[c.pid] = p.EdgeDiff[c.pid].Sub(c.diff)
	}
	currentArea := st.negativeArea(modified.items())

	if currentArea < originalArea || !checkFace {
		for _, c := range change {
			if p.EdgeDiff[c.pid].IsZero() {
				if err := st.collapse(st.tree.Parent(p.EdgeValues[c.pid].X), st.tree.Parent(p.EdgeValues[c.pid].Y)); err != nil {
					return false, err
				}
			}
		}
		return true, nil
	}
	for _, c := range change {
		p.EdgeDiff[c.pid] = p.EdgeDiff[c.pid].Add(c.diff)
	}
	return false, nil
}
