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

// BuildEdgeInfo canonicalizes each face's directed edges into undirected
// edge records. The per-corner lattice jump is rotated into the frame of the
// endpoint with the smaller vertex id (negated when the corner runs against
// the canonical direction), so paired half-edges agree on the stored diff.
// Singular faces never overwrite a diff: they do not define the field.
func (p *Parametrizer) BuildEdgeInfo() {
	F, E2E := p.F, p.E2E

	p.EdgeDiff = p.EdgeDiff[:0]
	p.EdgeValues = p.EdgeValues[:0]
	p.FaceEdgeIds = make([][3]int, len(F))
	for i := range p.FaceEdgeIds {
		p.FaceEdgeIds[i] = [3]int{-1, -1, -1}
	}
	for i := range F {
		for j := 0; j < 3; j++ {
			k1, k2 := j, (j+1)%3
			v1 := F[i][k1]
			v2 := F[i][k2]
			e2 := MakeDEdge(v1, v2)
			var diff2 Vec2i
			if v1 > v2 {
				rank2 := p.PosRank[i][k2]
				diff2 = rshift90(Vec2i{-p.PosIndex[i][k1*2], -p.PosIndex[i][k1*2+1]}, rank2)
			} else {
				rank2 := p.PosRank[i][k1]
				diff2 = rshift90(Vec2i{p.PosIndex[i][k1*2], p.PosIndex[i][k1*2+1]}, rank2)
			}
			currentEid := i*3 + k1
			eid := E2E[currentEid]
			eID2 := -1
			if eid != -1 {
				eID2 = p.FaceEdgeIds[eid/3][eid%3]
			}
			if eID2 == -1 {
				eID2 = len(p.EdgeValues)
				p.EdgeValues = append(p.EdgeValues, e2)
				p.EdgeDiff = append(p.EdgeDiff, diff2)
				p.FaceEdgeIds[i][k1] = eID2
				if eid != -1 {
					p.FaceEdgeIds[eid/3][eid%3] = eID2
				}
			} else {
				p.FaceEdgeIds[i][k1] = eID2
				if _, sing := p.Singularities.Get(i); !sing {
					p.EdgeDiff[eID2] = diff2
				}
			}
		}
	}
}
