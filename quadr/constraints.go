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
	"math/rand"
	"sort"
)

// Signed flat variable encoding: +-(2*edge + component + 1), so the sign
// survives rotation and the zero value is detectably invalid.

// BuildIntegerConstraints assembles, for every face, the two signed integer
// loop-closure equations over edge-diff components, resolves the global
// orientation with the orient-annotated union-find, selects a branch cut per
// orientation singularity by dynamic programming over the accumulated
// residual, and cancels part of the remaining flow by a seeded random
// perturbation of the cut variables. The leftover is C4's job.
func (p *Parametrizer) BuildIntegerConstraints() error {
	F := p.F
	Q, N := p.Hierarchy.Q, p.Hierarchy.N

	signIndices := make([]Vec2i, 0, 3*len(F))
	p.FaceEdgeOrients = make([][3]int, len(F))
	p.ConstraintsIndex = p.ConstraintsIndex[:0]
	p.ConstraintsSign = p.ConstraintsSign[:0]

	// edgeToConstraints[e] = {face on the lower-id side, its corner orient,
	// face on the reversed side, its corner orient}.
	edgeToConstraints := make([][4]int, len(p.EdgeValues))
	for i := range edgeToConstraints {
		edgeToConstraints[i] = [4]int{-1, -1, -1, -1}
	}

	for i := range F {
		v0, v1, v2 := F[i][0], F[i][1], F[i][2]
		eid := p.FaceEdgeIds[i]
		var vid [3]Vec2i
		for k := 0; k < 3; k++ {
			vid[k] = Vec2i{eid[k]*2 + 1, eid[k]*2 + 2}
		}
		i1first, i1second := compatOrientationExtrinsicIndex4(Q[v0], N[v0], Q[v1], N[v1])
		i2first, i2second := compatOrientationExtrinsicIndex4(Q[v0], N[v0], Q[v2], N[v2])
		rank1 := (i1first - i1second + 4) % 4
		rank2 := (i2first - i2second + 4) % 4
		var orients [3]int
		if v1 < v0 {
			vid[0] = rshift90(vid[0], rank1).Neg()
			orients[0] = (rank1 + 2) % 4
		}
		if v2 < v1 {
			vid[1] = rshift90(vid[1], rank2).Neg()
			orients[1] = (rank2 + 2) % 4
		} else {
			vid[1] = rshift90(vid[1], rank1)
			orients[1] = rank1
		}
		if v2 < v0 {
			vid[2] = rshift90(vid[2], rank2)
			orients[2] = rank2
		} else {
			vid[2] = vid[2].Neg()
			orients[2] = 2
		}
		p.FaceEdgeOrients[i] = orients

		setSide := func(e int, reversed bool, face, orient int) {
			base := 0
			if reversed {
				base = 2
			}
			edgeToConstraints[e][base] = face
			edgeToConstraints[e][base+1] = orient
		}
		setSide(eid[0], v0 > v1, i, orients[0])
		setSide(eid[1], v1 > v2, i, orients[1])
		setSide(eid[2], v2 > v0, i, orients[2])

		signIndices = append(signIndices, vid[0], vid[1], vid[2])
	}

	orientTree := NewDisjointOrientTree(len(F))
	for i := range edgeToConstraints {
		ec := edgeToConstraints[i]
		f0, f1 := ec[0], ec[2]
		if f0 < 0 || f1 < 0 {
			continue
		}
		if _, s0 := p.Singularities.Get(f0); s0 {
			continue
		}
		if _, s1 := p.Singularities.Get(f1); s1 {
			continue
		}
		// Frames across the shared edge relate through the direction
		// reversal: Orient(f0)+o0 == Orient(f1)+o1+2 (mod 4).
		orientTree.Merge(f0, f1, ec[1], (ec[3]+2)%4)
	}

	var singDiff [][3]int
	var singOrients [][3]int
	for i := 0; i < len(signIndices); i += 3 {
		f := i / 3
		orient := orientTree.Orient(f)
		for j := 0; j < 3; j++ {
			signIndices[i+j] = rshift90(signIndices[i+j], orient)
		}
		for j := 0; j < 2; j++ {
			var sign, ind [3]int
			for k := 0; k < 3; k++ {
				c := signIndices[i+k].X
				if j == 1 {
					c = signIndices[i+k].Y
				}
				ind[k] = absInt(c)
				if ind[k] == 0 {
					return pipelineError(InputMalformed, "BuildIntegerConstraints", f)
				}
				sign[k] = c / ind[k]
				ind[k]--
			}
			p.ConstraintsIndex = append(p.ConstraintsIndex, ind)
			p.ConstraintsSign = append(p.ConstraintsSign, sign)
		}
		defect, isSing := p.Singularities.Get(f)
		if !isSing {
			continue
		}
		var diffs, orientDiffs [3]int
		for j := 0; j < 3; j++ {
			eid := p.FaceEdgeIds[f][(j+1)%3]
			ec := edgeToConstraints[eid]
			f0, f1 := ec[0], ec[2]
			orientDiff := 0
			if f0 >= 0 && f1 >= 0 {
				orientp0 := orientTree.Orient(f0) + ec[1]
				orientp1 := orientTree.Orient(f1) + ec[3]
				if f1 == f {
					orientDiff = (orientp0 - orientp1 + 6) % 4
				} else {
					orientDiff = (orientp1 - orientp0 + 6) % 4
				}
			}
			var signIndex [3]Vec2i
			signIndex[0] = rshift90(signIndices[i+j], (defect+orientDiff)%4)
			signIndex[1] = rshift90(signIndices[i+(j+1)%3], orientDiff)
			signIndex[2] = rshift90(signIndices[i+(j+2)%3], orientDiff)
			totalDiff := 0
			for k := 0; k < 2; k++ {
				var ind, sign [3]int
				for l := 0; l < 3; l++ {
					c := signIndex[l].X
					if k == 1 {
						c = signIndex[l].Y
					}
					ind[l] = absInt(c)
					sign[l] = c / ind[l]
					ind[l]--
				}
				diff := 0
				for l := 0; l < 3; l++ {
					diff += sign[l] * p.diffComponent(ind[l])
				}
				totalDiff += diff
			}
			orientDiffs[j] = orientDiff
			diffs[j] = totalDiff
		}
		singDiff = append(singDiff, diffs)
		singOrients = append(singOrients, orientDiffs)
	}

	totalFlow := 0
	for i := range p.ConstraintsIndex {
		if _, s := p.Singularities.Get(i / 2); s {
			continue
		}
		diff := 0
		for k := 0; k < 3; k++ {
			diff += p.ConstraintsSign[i][k] * p.diffComponent(p.ConstraintsIndex[i][k])
		}
		totalFlow += diff
	}

	// Branch selection: DP over the running residual; each singularity
	// contributes one of three per-edge residual deltas. Ties break on the
	// smaller state value (sorted iteration) so the choice is reproducible.
	type dpCell struct {
		cost   int
		branch int
	}
	singMaps := make([]map[int]dpCell, len(singDiff)+1)
	singMaps[0] = map[int]dpCell{totalFlow: {0, 0}}
	for i := 0; i < len(singDiff); i++ {
		prev := singMaps[i]
		next := make(map[int]dpCell)
		keys := make([]int, 0, len(prev))
		for k := range prev {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			pc := prev[k]
			for j := 0; j < 3; j++ {
				v := k + singDiff[i][j]
				t := pc.cost + absInt(singDiff[i][j])
				if cur, ok := next[v]; !ok || t < cur.cost {
					next[v] = dpCell{t, j}
				}
			}
		}
		singMaps[i+1] = next
	}

	targetFlow := 0
	last := singMaps[len(singDiff)]
	bound := absInt(totalFlow) + 2
	for _, d := range singDiff {
		bound += absInt(d[0]) + absInt(d[1]) + absInt(d[2])
	}
	for {
		if _, ok := last[targetFlow]; ok {
			break
		}
		if _, ok := last[-targetFlow]; ok {
			break
		}
		targetFlow += 2
		if targetFlow > bound {
			return pipelineError(FlowInfeasible, "BuildIntegerConstraints", targetFlow)
		}
	}
	if _, ok := last[targetFlow]; !ok {
		targetFlow = -targetFlow
	}
	singSelection := make([]int, 0, len(singDiff))
	remainFlow := targetFlow
	for i := len(singDiff); i > 0; i-- {
		cell := singMaps[i][remainFlow]
		remainFlow -= singDiff[i-1][cell.branch]
		singSelection = append(singSelection, cell.branch)
	}
	for l, r := 0, len(singSelection)-1; l < r; l, r = l+1, r-1 {
		singSelection[l], singSelection[r] = singSelection[r], singSelection[l]
	}

	singCount := 0
	for pair := p.Singularities.Oldest(); pair != nil; pair = pair.Next() {
		f, defect := pair.Key, pair.Value
		sel := singSelection[singCount]
		orientDiff := singOrients[singCount][sel]
		singCount++
		index1 := &p.ConstraintsIndex[f*2]
		index2 := &p.ConstraintsIndex[f*2+1]
		sign1 := &p.ConstraintsSign[f*2]
		sign2 := &p.ConstraintsSign[f*2+1]

		eid0 := -1
		for i := 0; i < 3; i++ {
			diff := Vec2i{sign1[i] * (index1[i] + 1), sign2[i] * (index2[i] + 1)}
			t := orientDiff
			if i == sel {
				t = (t + defect) % 4
			}
			v0 := F[f][i]
			v1 := F[f][(i+1)%3]
			eid := p.FaceEdgeIds[f][i]
			if (sel+1)%3 == i {
				eid0 = eid
			}
			base := 0
			if v0 > v1 {
				base = 2
			}
			edgeToConstraints[eid][base] = f
			edgeToConstraints[eid][base+1] = (edgeToConstraints[eid][base+1] + t) % 4
			p.FaceEdgeOrients[f][i] = (p.FaceEdgeOrients[f][i] + t) % 4

			diff = rshift90(diff, t)
			index1[i] = absInt(diff.X)
			sign1[i] = diff.X / index1[i]
			index1[i]--
			index2[i] = absInt(diff.Y)
			sign2[i] = diff.Y / index2[i]
			index2[i]--
		}
		// The selected edge carries the branch cut; its two faces now share
		// a frame.
		ec := edgeToConstraints[eid0]
		if ec[0] >= 0 && ec[2] >= 0 {
			orientTree.Merge(ec[0], ec[2], ec[1], (ec[3]+2)%4)
		}
	}

	// Net sign per variable locates the cut edges; a seeded shuffle picks
	// which of them absorb half the target flow by a one-step perturbation.
	type varInfo struct {
		rows [2]int
		net  int
	}
	variables := make([]varInfo, len(p.EdgeDiff)*2)
	for i := range variables {
		variables[i].rows = [2]int{-1, -1}
	}
	totalFlow = 0
	for i := range p.ConstraintsIndex {
		diff := 0
		for j := 0; j < 3; j++ {
			idx := p.ConstraintsIndex[i][j]
			sign := p.ConstraintsSign[i][j]
			diff += sign * p.diffComponent(idx)
			if sign > 0 {
				variables[idx].rows[0] = i
			} else {
				variables[idx].rows[1] = i
			}
			variables[idx].net += sign
		}
		totalFlow += diff
	}
	p.Cuts = make(map[DEdge]bool)
	type modVar struct {
		index int
		delta int
	}
	var modified []modVar
	for i := range variables {
		if variables[i].net == 0 {
			continue
		}
		// A boundary variable trivially carries a net sign; only interior
		// edges are genuine discontinuity seams.
		if ec := edgeToConstraints[i/2]; ec[0] >= 0 && ec[2] >= 0 {
			p.Cuts[p.EdgeValues[i/2]] = true
		}
		cur := p.diffComponent(i)
		if targetFlow > 0 {
			if variables[i].net > 0 && cur > -1 {
				modified = append(modified, modVar{i, -1})
			}
			if variables[i].net < 0 && cur < 1 {
				modified = append(modified, modVar{i, 1})
			}
		} else if targetFlow < 0 {
			if variables[i].net < 0 && cur > -1 {
				modified = append(modified, modVar{i, -1})
			}
			if variables[i].net > 0 && cur < 1 {
				modified = append(modified, modVar{i, 1})
			}
		}
	}

	rng := rand.New(rand.NewSource(p.Opts.Seed))
	rng.Shuffle(len(modified), func(i, j int) {
		modified[i], modified[j] = modified[j], modified[i]
	})

	cancel := absInt(targetFlow) / 2
	if cancel > len(modified) {
		cancel = len(modified)
	}
	for i := 0; i < cancel; i++ {
		p.addDiffComponent(modified[i].index, modified[i].delta)
	}

	for i := range p.FaceEdgeOrients {
		o := orientTree.Orient(i)
		for j := 0; j < 3; j++ {
			p.FaceEdgeOrients[i][j] = (p.FaceEdgeOrients[i][j] + o) % 4
		}
	}
	return nil
}

func (p *Parametrizer) diffComponent(flat int) int {
	d := p.EdgeDiff[flat/2]
	if flat%2 == 1 {
		return d.Y
	}
	return d.X
}

func (p *Parametrizer) addDiffComponent(flat, delta int) {
	d := &p.EdgeDiff[flat/2]
	if flat%2 == 1 {
		d.Y += delta
	} else {
		d.X += delta
	}
}
