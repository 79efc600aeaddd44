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

// Debug snapshot: a flat stream of length-prefixed records, little-endian
// IEEE-754 doubles and 32-bit signed ints, in a fixed field order. Used by
// tests and for resuming a run; not part of the production output.

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/geo/r3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type snapshotWriter struct {
	w   io.Writer
	err error
}

func (s *snapshotWriter) write(v any) {
	if s.err != nil {
		return
	}
	s.err = binary.Write(s.w, binary.LittleEndian, v)
}

func (s *snapshotWriter) writeInt(v int)   { s.write(int32(v)) }
func (s *snapshotWriter) writeLen(n int)   { s.write(int32(n)) }
func (s *snapshotWriter) writeF64(v float64) { s.write(v) }

func (s *snapshotWriter) writeIntSlice(v []int) {
	s.writeLen(len(v))
	for _, x := range v {
		s.writeInt(x)
	}
}

func (s *snapshotWriter) writeBoolSlice(v []bool) {
	s.writeLen(len(v))
	for _, x := range v {
		b := int32(0)
		if x {
			b = 1
		}
		s.write(b)
	}
}

func (s *snapshotWriter) writeF64Slice(v []float64) {
	s.writeLen(len(v))
	for _, x := range v {
		s.write(x)
	}
}

func (s *snapshotWriter) writeVecSlice(v []r3.Vector) {
	s.writeLen(len(v))
	for _, x := range v {
		s.write(x.X)
		s.write(x.Y)
		s.write(x.Z)
	}
}

func (s *snapshotWriter) writeTriSlice(v [][3]int) {
	s.writeLen(len(v))
	for _, x := range v {
		s.writeInt(x[0])
		s.writeInt(x[1])
		s.writeInt(x[2])
	}
}

type snapshotReader struct {
	r   io.Reader
	err error
}

func (s *snapshotReader) read(v any) {
	if s.err != nil {
		return
	}
	s.err = binary.Read(s.r, binary.LittleEndian, v)
}

func (s *snapshotReader) readInt() int {
	var v int32
	s.read(&v)
	return int(v)
}

func (s *snapshotReader) readF64() float64 {
	var v float64
	s.read(&v)
	return v
}

func (s *snapshotReader) readIntSlice() []int {
	n := s.readInt()
	if s.err != nil || n < 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = s.readInt()
	}
	return out
}

func (s *snapshotReader) readBoolSlice() []bool {
	n := s.readInt()
	if s.err != nil || n < 0 {
		return nil
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = s.readInt() != 0
	}
	return out
}

func (s *snapshotReader) readF64Slice() []float64 {
	n := s.readInt()
	if s.err != nil || n < 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = s.readF64()
	}
	return out
}

func (s *snapshotReader) readVecSlice() []r3.Vector {
	n := s.readInt()
	if s.err != nil || n < 0 {
		return nil
	}
	out := make([]r3.Vector, n)
	for i := range out {
		out[i].X = s.readF64()
		out[i].Y = s.readF64()
		out[i].Z = s.readF64()
	}
	return out
}

func (s *snapshotReader) readTriSlice() [][3]int {
	n := s.readInt()
	if s.err != nil || n < 0 {
		return nil
	}
	out := make([][3]int, n)
	for i := range out {
		out[i][0] = s.readInt()
		out[i][1] = s.readInt()
		out[i][2] = s.readInt()
	}
	return out
}

// SaveSnapshot streams the pipeline state in the fixed field order:
// singularity maps, position singularity state, mesh, derived fields,
// topology, adjacency, hierarchy level 0, status scalars, targets.
func (p *Parametrizer) SaveSnapshot(w io.Writer) error {
	s := &snapshotWriter{w: w}

	s.writeLen(p.Singularities.Len())
	for pair := p.Singularities.Oldest(); pair != nil; pair = pair.Next() {
		s.writeInt(pair.Key)
		s.writeInt(pair.Value)
	}
	s.writeLen(p.PosSing.Len())
	for pair := p.PosSing.Oldest(); pair != nil; pair = pair.Next() {
		s.writeInt(pair.Key)
		s.writeInt(pair.Value.X)
		s.writeInt(pair.Value.Y)
	}
	s.writeTriSlice(p.PosRank)
	s.writeLen(len(p.PosIndex))
	for _, x := range p.PosIndex {
		for _, c := range x {
			s.writeInt(c)
		}
	}

	s.writeVecSlice(p.V)
	s.writeVecSlice(p.Hierarchy.N)
	s.writeVecSlice(p.Nf)
	s.writeLen(len(p.FS))
	for _, x := range p.FS {
		s.writeF64(x[0])
		s.writeF64(x[1])
	}
	s.writeVecSlice(p.FQ)
	s.writeTriSlice(p.F)
	s.writeLen(len(p.TriangleSpace))
	for _, ts := range p.TriangleSpace {
		for _, row := range ts {
			for _, v := range row {
				s.writeF64(v)
			}
		}
	}

	s.writeIntSlice(p.V2E)
	s.writeIntSlice(p.E2E)
	s.writeBoolSlice(p.Boundary)
	s.writeBoolSlice(p.NonManifold)
	// Vertex adjacency, one neighbor run per vertex.
	adj := buildAdjacency(len(p.V), p.F)
	s.writeLen(len(adj))
	for _, l := range adj {
		s.writeIntSlice(l)
	}

	// Hierarchy level 0.
	s.writeF64(p.Hierarchy.Scale)
	s.writeVecSlice(p.Hierarchy.Q)
	s.writeVecSlice(p.Hierarchy.O)
	s.writeLen(len(p.Hierarchy.S))
	for _, x := range p.Hierarchy.S {
		s.writeF64(x[0])
		s.writeF64(x[1])
	}
	s.writeLen(len(p.Hierarchy.K))
	for _, x := range p.Hierarchy.K {
		s.writeF64(x[0])
		s.writeF64(x[1])
	}

	s.writeF64(p.Status.SurfaceArea)
	s.writeF64(p.Scale)
	s.writeF64(p.Status.AverageEdgeLength)
	s.writeF64(p.Status.MaxEdgeLength)
	s.writeF64Slice(p.A)

	s.writeInt(p.NumVertices)
	s.writeInt(p.NumFaces)
	return s.err
}

// LoadSnapshot restores state written by SaveSnapshot.
func (p *Parametrizer) LoadSnapshot(r io.Reader) error {
	s := &snapshotReader{r: r}

	p.Singularities = orderedmap.New[int, int]()
	for n := s.readInt(); n > 0; n-- {
		k := s.readInt()
		v := s.readInt()
		p.Singularities.Set(k, v)
	}
	p.PosSing = orderedmap.New[int, Vec2i]()
	for n := s.readInt(); n > 0; n-- {
		k := s.readInt()
		x := s.readInt()
		y := s.readInt()
		p.PosSing.Set(k, Vec2i{x, y})
	}
	p.PosRank = s.readTriSlice()
	p.PosIndex = make([][6]int, s.readInt())
	for i := range p.PosIndex {
		for j := 0; j < 6; j++ {
			p.PosIndex[i][j] = s.readInt()
		}
	}

	p.V = s.readVecSlice()
	p.Hierarchy.N = s.readVecSlice()
	p.Nf = s.readVecSlice()
	p.FS = make([][2]float64, s.readInt())
	for i := range p.FS {
		p.FS[i][0] = s.readF64()
		p.FS[i][1] = s.readF64()
	}
	p.FQ = s.readVecSlice()
	p.F = s.readTriSlice()
	p.TriangleSpace = make([][2][3]float64, s.readInt())
	for i := range p.TriangleSpace {
		for j := 0; j < 2; j++ {
			for k := 0; k < 3; k++ {
				p.TriangleSpace[i][j][k] = s.readF64()
			}
		}
	}

	p.V2E = s.readIntSlice()
	p.E2E = s.readIntSlice()
	p.Boundary = s.readBoolSlice()
	p.NonManifold = s.readBoolSlice()
	for n := s.readInt(); n > 0; n-- {
		s.readIntSlice()
	}

	p.Hierarchy.Scale = s.readF64()
	p.Hierarchy.Q = s.readVecSlice()
	p.Hierarchy.O = s.readVecSlice()
	p.Hierarchy.S = make([][2]float64, s.readInt())
	for i := range p.Hierarchy.S {
		p.Hierarchy.S[i][0] = s.readF64()
		p.Hierarchy.S[i][1] = s.readF64()
	}
	p.Hierarchy.K = make([][2]float64, s.readInt())
	for i := range p.Hierarchy.K {
		p.Hierarchy.K[i][0] = s.readF64()
		p.Hierarchy.K[i][1] = s.readF64()
	}

	p.Status.SurfaceArea = s.readF64()
	p.Scale = s.readF64()
	p.Status.AverageEdgeLength = s.readF64()
	p.Status.MaxEdgeLength = s.readF64()
	p.A = s.readF64Slice()

	p.NumVertices = s.readInt()
	p.NumFaces = s.readInt()

	p.Hierarchy.V = p.V
	p.Hierarchy.F = p.F
	p.Hierarchy.E2E = p.E2E
	return s.err
}

// SaveSnapshotFile / LoadSnapshotFile wrap the stream forms over a path.
func (p *Parametrizer) SaveSnapshotFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.SaveSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Parametrizer) LoadSnapshotFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.LoadSnapshot(f)
}

func buildAdjacency(numV int, F [][3]int) [][]int {
	adj := make([][]int, numV)
	for _, f := range F {
		for k := 0; k < 3; k++ {
			v0, v1 := f[k], f[(k+1)%3]
			adj[v0] = append(adj[v0], v1)
			adj[v1] = append(adj[v1], v0)
		}
	}
	for i := range adj {
		sortInts(adj[i])
		adj[i] = dedupSorted(adj[i])
	}
	return adj
}

func dedupSorted(a []int) []int {
	out := a[:0]
	for i, v := range a {
		if i == 0 || v != a[i-1] {
			out = append(out, v)
		}
	}
	return out
}
