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
	"io"
	"math"

	"github.com/golang/geo/r3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Options controls the pipeline. The zero value is usable.
type Options struct {
	// TargetFaces is the requested quad count; <= 0 means one quad per
	// source vertex.
	TargetFaces int
	// WithScale enables the anisotropic scale field.
	WithScale bool
	// Seed drives the randomized cut cancellation; equal seeds reproduce
	// identical outputs.
	Seed int64
	// OptimizeQuadPositions runs the final quad position optimization.
	// Off by default.
	OptimizeQuadPositions bool
	// Verbose enables recovered-diagnostic logging.
	Verbose bool
}

// Parametrizer is the pipeline state: the input mesh, the fields provided by
// the collaborators, and every intermediate the integer parameterization and
// quad extraction stages produce.
type Parametrizer struct {
	Opts Options

	// Input mesh, immutable during the core stages.
	V []r3.Vector
	F [][3]int

	// Half-edge topology.
	V2E, E2E    []int
	Boundary    []bool
	NonManifold []bool

	// Derived geometry.
	Nf            []r3.Vector    // face normals
	A             []float64      // vertex areas
	TriangleSpace [][2][3]float64 // per-face tangent projections (WithScale)
	FS            [][2]float64    // per-face slope (scale estimation)
	FQ            []r3.Vector     // per-face combined orientation

	Status      meshStatus
	Scale       float64
	NumVertices int
	NumFaces    int

	Hierarchy *Hierarchy

	// Singularity maps; iteration order is ascending face id (insertion
	// order during the face scans).
	Singularities *orderedmap.OrderedMap[int, int]
	PosSing       *orderedmap.OrderedMap[int, Vec2i]
	PosRank       [][3]int
	PosIndex      [][6]int

	// Edge graph.
	EdgeValues      []DEdge
	EdgeDiff        []Vec2i
	FaceEdgeIds     [][3]int
	FaceEdgeOrients [][3]int

	// Integer constraints.
	ConstraintsIndex [][3]int
	ConstraintsSign  [][3]int
	Cuts             map[DEdge]bool

	edgeAroundSingularities map[int]bool

	// Quotient structures and output.
	Tree        *DisjointTree
	OCompact    []r3.Vector
	NCompact    []r3.Vector
	QCompact    []r3.Vector
	FCompact    [][4]int
	BadVertices []bool
	counter     []int

	V2ECompact         []int
	E2ECompact         []int
	BoundaryCompact    []bool
	NonManifoldCompact []bool

	// boundaryClass marks quotient classes containing an input boundary
	// vertex; those are the mesh's own border, not extraction damage.
	boundaryClass []bool
}

// NewParametrizer creates an empty pipeline with the given options.
func NewParametrizer(opts Options) *Parametrizer {
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return &Parametrizer{
		Opts:          opts,
		Hierarchy:     &Hierarchy{},
		Singularities: orderedmap.New[int, int](),
		PosSing:       orderedmap.New[int, Vec2i](),
		Cuts:          make(map[DEdge]bool),
	}
}

// Load reads the triangle mesh, recenters it into the unit box and merges
// coincident vertices.
func (p *Parametrizer) Load(r io.Reader) error {
	V, F, err := LoadOBJ(r)
	if err != nil {
		return err
	}
	normalizeMesh(V)
	p.V, p.F = mergeClose(V, F, 1e-6)
	return nil
}

// SetMesh installs an in-memory mesh, bypassing Load.
func (p *Parametrizer) SetMesh(V []r3.Vector, F [][3]int) {
	p.V, p.F = V, F
}

// Initialize builds the half-edge topology, the derived geometry and the
// hierarchy's level-0 mesh slices. The caller (or the bring-up helper)
// installs Q, O and S afterwards.
func (p *Parametrizer) Initialize() error {
	p.Status = computeMeshStatus(p.V, p.F)
	faces := p.Opts.TargetFaces
	if faces <= 0 {
		p.NumVertices = len(p.V)
		p.NumFaces = p.NumVertices
		p.Scale = math.Sqrt(p.Status.SurfaceArea / float64(maxInt(p.NumFaces, 1)))
	} else {
		faceArea := p.Status.SurfaceArea / float64(faces)
		p.NumVertices = faces
		p.NumFaces = faces
		p.Scale = math.Sqrt(faceArea) / 2
	}

	p.V2E, p.E2E, p.Boundary, p.NonManifold = computeDirectGraph(len(p.V), p.F)
	nm := 0
	for _, b := range p.NonManifold {
		if b {
			nm++
		}
	}
	if nm > len(p.V)/10 {
		return pipelineError(InputMalformed, "Initialize", nm)
	}

	p.Nf = computeFaceNormals(p.V, p.F)
	N := computeSmoothNormals(p.V, p.F, p.Nf, p.V2E, p.E2E, p.NonManifold)
	p.A = computeVertexArea(p.V, p.F, p.V2E, p.E2E, p.NonManifold)

	if p.Opts.WithScale {
		p.TriangleSpace = computeTriangleSpace(p.V, p.F, p.Nf)
	}

	p.Hierarchy.F = p.F
	p.Hierarchy.E2E = p.E2E
	p.Hierarchy.V = p.V
	p.Hierarchy.N = N
	p.Hierarchy.Scale = p.Scale
	if p.Hierarchy.K == nil {
		p.Hierarchy.K = make([][2]float64, len(p.V))
	}
	return nil
}

// computeTriangleSpace inverts [e1 e2 n] per face and keeps the two tangent
// rows, mapping object-space offsets to in-triangle coordinates.
func computeTriangleSpace(V []r3.Vector, F [][3]int, Nf []r3.Vector) [][2][3]float64 {
	ts := make([][2][3]float64, len(F))
	for i := range F {
		c0 := V[F[i][1]].Sub(V[F[i][0]])
		c1 := V[F[i][2]].Sub(V[F[i][0]])
		c2 := Nf[i]
		// Inverse via adjugate of the column matrix [c0 c1 c2].
		r0 := c1.Cross(c2)
		r1 := c2.Cross(c0)
		det := c0.Dot(r0)
		if math.Abs(det) < 1e-20 {
			continue
		}
		inv := 1 / det
		ts[i][0] = [3]float64{r0.X * inv, r0.Y * inv, r0.Z * inv}
		ts[i][1] = [3]float64{r1.X * inv, r1.Y * inv, r1.Z * inv}
	}
	return ts
}

// ComputeIndexMap runs the core pipeline: singularity detection, edge-graph
// lift, integer constraints, flow, collapse and flip repair, compact
// extraction and hole filling.
func (p *Parametrizer) ComputeIndexMap() error {
	p.ComputeOrientationSingularities()
	p.ComputePositionSingularities()

	p.BuildEdgeInfo()
	for i := range p.EdgeDiff {
		p.EdgeDiff[i] = clampDiff(p.EdgeDiff[i])
	}

	if err := p.BuildIntegerConstraints(); err != nil {
		return err
	}
	if err := p.ComputeMaxFlow(); err != nil {
		return err
	}
	if err := p.FixFlipAdvance(); err != nil {
		return err
	}

	p.Tree = NewDisjointTree(len(p.V))
	for i := range p.EdgeDiff {
		if p.EdgeDiff[i].IsZero() {
			p.Tree.Merge(p.EdgeValues[i].X, p.EdgeValues[i].Y)
		}
	}
	p.Tree.BuildCompactParent()

	p.ComputePosition()
	p.extractQuadMesh()
	if err := p.FixHoles(); err != nil {
		return err
	}

	p.V2ECompact, p.E2ECompact, p.BoundaryCompact, p.NonManifoldCompact =
		computeDirectGraphQuad(len(p.OCompact), p.FCompact)

	if p.Opts.OptimizeQuadPositions {
		p.optimizeQuadPositions()
	}
	return nil
}

func clampDiff(d Vec2i) Vec2i {
	if d.X > 1 {
		d.X = 1
	}
	if d.X < -1 {
		d.X = -1
	}
	if d.Y > 1 {
		d.Y = 1
	}
	if d.Y < -1 {
		d.Y = -1
	}
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
