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
	"github.com/golang/geo/r3"
)

// Hierarchy owns the level-0 fields the collaborators solved for and the
// edge-graph levels the integer flow optimizer works on. Field smoothing and
// multigrid construction happen outside the core; the core only consumes the
// level-0 slices and drives DownsampleEdgeGraph / UpdateGraphValue.
type Hierarchy struct {
	F   [][3]int
	E2E []int

	V []r3.Vector // positions
	N []r3.Vector // vertex normals
	Q []r3.Vector // tangent orientations (4-RoSy representatives)
	O []r3.Vector // position field
	S [][2]float64 // scale field
	K [][2]float64 // curvature field

	Scale float64

	levels []*edgeLevel
}

// eqTerm is one signed reference to an edge-diff component
// (flat variable id = 2*edge + component).
type eqTerm struct {
	v    int
	sign int
}

// eqRow is one face loop-closure equation in the global frame.
type eqRow struct {
	terms     []eqTerm
	conserved bool // singular face: residual is by design, must not change
}

// edgeLevel is one level of the downsampled edge graph: a set of equations
// over the shared edge-diff variables. Coarser levels merge adjacent faces'
// equations, cancelling the interior variable.
type edgeLevel struct {
	rows []eqRow
}

// rowTermsForFace expands face f's two loop-closure equations given its edge
// ids and global corner orientations. Row 0 is the x component, row 1 the y.
func rowTermsForFace(eids, orients [3]int) (x, y []eqTerm) {
	for j := 0; j < 3; j++ {
		e := eids[j]
		switch orients[j] % 4 {
		case 0:
			x = append(x, eqTerm{2 * e, 1})
			y = append(y, eqTerm{2*e + 1, 1})
		case 1:
			x = append(x, eqTerm{2*e + 1, -1})
			y = append(y, eqTerm{2 * e, 1})
		case 2:
			x = append(x, eqTerm{2 * e, -1})
			y = append(y, eqTerm{2*e + 1, -1})
		case 3:
			x = append(x, eqTerm{2*e + 1, 1})
			y = append(y, eqTerm{2 * e, -1})
		}
	}
	return x, y
}

// DownsampleEdgeGraph builds the edge-graph levels for the flow solve.
// Level 0 holds one equation pair per face; each coarser level merges pairs
// of adjacent non-singular face groups across a shared edge, summing their
// equations so the shared variable drops out.
func (h *Hierarchy) DownsampleEdgeGraph(faceEdgeOrients, faceEdgeIds [][3]int,
	E2F [][2]int, edgeDiff []Vec2i, singular map[int]bool) {

	base := &edgeLevel{rows: make([]eqRow, 0, 2*len(faceEdgeIds))}
	for f := range faceEdgeIds {
		x, y := rowTermsForFace(faceEdgeIds[f], faceEdgeOrients[f])
		c := singular[f]
		base.rows = append(base.rows, eqRow{terms: x, conserved: c}, eqRow{terms: y, conserved: c})
	}
	h.levels = []*edgeLevel{base}

	// group[f] = row-pair index of f's group at the current level.
	group := make([]int, len(faceEdgeIds))
	for f := range group {
		group[f] = f
	}
	for len(h.levels[len(h.levels)-1].rows) > 64 {
		cur := h.levels[len(h.levels)-1]
		numGroups := len(cur.rows) / 2
		matched := make([]bool, numGroups)
		merge := make([]int, numGroups)
		for i := range merge {
			merge[i] = -1
		}
		pairs := 0
		for e := range E2F {
			f0, f1 := E2F[e][0], E2F[e][1]
			if f0 < 0 || f1 < 0 {
				continue
			}
			g0, g1 := group[f0], group[f1]
			if g0 == g1 || matched[g0] || matched[g1] {
				continue
			}
			if cur.rows[2*g0].conserved || cur.rows[2*g1].conserved {
				continue
			}
			matched[g0], matched[g1] = true, true
			merge[g1] = g0
			pairs++
		}
		if pairs == 0 {
			break
		}
		// Renumber groups and emit merged rows.
		next := &edgeLevel{}
		newID := make([]int, numGroups)
		for i := range newID {
			newID[i] = -1
		}
		ok := true
		for g := 0; g < numGroups && ok; g++ {
			if merge[g] != -1 {
				continue
			}
			id := len(next.rows) / 2
			newID[g] = id
			rx := cur.rows[2*g]
			ry := cur.rows[2*g+1]
			// Find a partner merged into g.
			for g2 := 0; g2 < numGroups; g2++ {
				if merge[g2] != g {
					continue
				}
				var merged bool
				rx, merged = mergeRows(rx, cur.rows[2*g2])
				if !merged {
					ok = false
					break
				}
				ry, merged = mergeRows(ry, cur.rows[2*g2+1])
				if !merged {
					ok = false
					break
				}
			}
			next.rows = append(next.rows, rx, ry)
		}
		if !ok {
			break
		}
		for f := range group {
			g := group[f]
			if merge[g] != -1 {
				g = merge[g]
			}
			group[f] = newID[g]
		}
		h.levels = append(h.levels, next)
	}
}

// mergeRows sums two equations, cancelling variables that appear in both
// with opposite signs. A variable surviving with coefficient other than
// +/-1 makes the pair unmergeable.
func mergeRows(a, b eqRow) (eqRow, bool) {
	coeff := make(map[int]int, len(a.terms)+len(b.terms))
	order := make([]int, 0, len(a.terms)+len(b.terms))
	for _, t := range a.terms {
		if _, ok := coeff[t.v]; !ok {
			order = append(order, t.v)
		}
		coeff[t.v] += t.sign
	}
	for _, t := range b.terms {
		if _, ok := coeff[t.v]; !ok {
			order = append(order, t.v)
		}
		coeff[t.v] += t.sign
	}
	out := eqRow{conserved: a.conserved || b.conserved}
	for _, v := range order {
		c := coeff[v]
		if c == 0 {
			continue
		}
		if c != 1 && c != -1 {
			return eqRow{}, false
		}
		out.terms = append(out.terms, eqTerm{v, c})
	}
	return out, true
}

// UpdateGraphValue propagates the flow solution back to the caller's arrays.
// The levels share the edge-diff storage, so this verifies the level-0
// contract: every non-singular equation sums to zero and every diff stays in
// the clamp.
func (h *Hierarchy) UpdateGraphValue(faceEdgeOrients, faceEdgeIds [][3]int,
	E2F [][2]int, edgeDiff []Vec2i) error {

	if len(h.levels) == 0 {
		return nil
	}
	for i, row := range h.levels[0].rows {
		if row.conserved {
			continue
		}
		if rowResidual(row, edgeDiff) != 0 {
			return pipelineError(FlowInfeasible, "UpdateGraphValue", i/2)
		}
	}
	for e, d := range edgeDiff {
		if d.X < -1 || d.X > 1 || d.Y < -1 || d.Y > 1 {
			return pipelineError(FlowInfeasible, "UpdateGraphValue", e)
		}
	}
	return nil
}

func rowResidual(row eqRow, edgeDiff []Vec2i) int {
	r := 0
	for _, t := range row.terms {
		d := edgeDiff[t.v/2]
		c := d.X
		if t.v%2 == 1 {
			c = d.Y
		}
		r += t.sign * c
	}
	return r
}
