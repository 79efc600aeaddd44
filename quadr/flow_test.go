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

import "testing"

func TestSolveLevelMovesExcess(t *testing.T) {
	// Two equations share variable 0 with opposite signs; the +1 residual
	// on row 0 drains into row 1 by decrementing the variable.
	edgeDiff := []Vec2i{{1, 0}}
	lvl := &edgeLevel{rows: []eqRow{
		{terms: []eqTerm{{0, 1}}},
		{terms: []eqTerm{{0, -1}}},
	}}
	// Residuals are +1 and -1; one unit of flow fixes both.
	if !solveLevel(lvl, edgeDiff) {
		t.Fatalf("solveLevel reported infeasible")
	}
	if edgeDiff[0].X != 0 {
		t.Errorf("variable not adjusted: %v", edgeDiff[0])
	}
}

func TestSolveLevelRespectsClamp(t *testing.T) {
	// Row 0 has residual +2 but the only path is a single variable already
	// at its lower bound; the level must report infeasible.
	edgeDiff := []Vec2i{{-1, 0}}
	lvl := &edgeLevel{rows: []eqRow{
		{terms: []eqTerm{{0, 1}}},
	}}
	// residual = -1; draining further would push the variable to -2.
	if rowResidual(lvl.rows[0], edgeDiff) != -1 {
		t.Fatalf("unexpected residual")
	}
	if solveLevel(lvl, edgeDiff) {
		t.Errorf("expected infeasible, got success with diff %v", edgeDiff[0])
	}
	if edgeDiff[0].X != -1 {
		t.Errorf("infeasible solve must leave the variable clamped: %v", edgeDiff[0])
	}
}

func TestSolveLevelConservedRow(t *testing.T) {
	// The middle row is conserved (singular face): flow may pass through it
	// but its residual must not change.
	edgeDiff := []Vec2i{{1, 0}, {1, 0}}
	lvl := &edgeLevel{rows: []eqRow{
		{terms: []eqTerm{{0, 1}}},                           // residual +1
		{terms: []eqTerm{{0, -1}, {2, 1}}, conserved: true}, // residual 0, by design
		{terms: []eqTerm{{2, -1}}},                          // residual -1
	}}
	before := rowResidual(lvl.rows[1], edgeDiff)
	if !solveLevel(lvl, edgeDiff) {
		t.Fatalf("solveLevel reported infeasible")
	}
	if got := rowResidual(lvl.rows[1], edgeDiff); got != before {
		t.Errorf("conserved row changed: %d -> %d", before, got)
	}
	for i, r := range lvl.rows {
		if r.conserved {
			continue
		}
		if rowResidual(r, edgeDiff) != 0 {
			t.Errorf("row %d not closed", i)
		}
	}
}

func TestSolveLevelSameSignPair(t *testing.T) {
	// Variable 0 appears with the same sign in both rows (a cut edge);
	// one decrement cancels both residuals at once.
	edgeDiff := []Vec2i{{1, 0}}
	lvl := &edgeLevel{rows: []eqRow{
		{terms: []eqTerm{{0, 1}}},
		{terms: []eqTerm{{0, 1}}},
	}}
	if !solveLevel(lvl, edgeDiff) {
		t.Fatalf("solveLevel reported infeasible")
	}
	if edgeDiff[0].X != 0 {
		t.Errorf("cut variable not spent: %v", edgeDiff[0])
	}
}

func TestMergeRows(t *testing.T) {
	a := eqRow{terms: []eqTerm{{0, 1}, {2, 1}}}
	b := eqRow{terms: []eqTerm{{2, -1}, {4, -1}}}
	m, ok := mergeRows(a, b)
	if !ok {
		t.Fatalf("mergeRows failed")
	}
	if len(m.terms) != 2 {
		t.Fatalf("shared variable not cancelled: %v", m.terms)
	}
	// Same-sign overlap is unmergeable.
	c := eqRow{terms: []eqTerm{{0, 1}}}
	if _, ok := mergeRows(a, c); ok {
		t.Errorf("coefficient 2 must refuse to merge")
	}
}
