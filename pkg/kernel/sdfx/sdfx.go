// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Solids are kept as an immutable CSG tree of analytic tube primitives.
// The sdfx expression built alongside the tree carries blended (rounded)
// union junctions and is what gets meshed and measured; the sharp tree is
// what boundary edges are traced against.
package sdfx

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// maxBlendRatio bounds the accumulated blend radius at a junction relative
// to the thinnest tube meeting there. Past it the polynomial blend swallows
// the smaller branch.
const maxBlendRatio = 0.5

// sdfxSolid wraps a CSG tree to implement kernel.Solid.
type sdfxSolid struct {
	root *node
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.root.sdf.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(cells int) Option {
	return func(k *SdfxKernel) {
		if cells > 0 {
			k.meshCells = cells
		}
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
	tubeIDs   atomic.Int64
	joinIDs   atomic.Int64
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: defaultMeshCells}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// unwrap extracts the CSG tree from a kernel.Solid.
func unwrap(s kernel.Solid) (*node, error) {
	w, ok := s.(*sdfxSolid)
	if !ok || w == nil || w.root == nil {
		return nil, kernel.ErrForeignSolid
	}
	return w.root, nil
}

// wrap creates a kernel.Solid from a CSG tree.
func wrap(n *node) kernel.Solid {
	return &sdfxSolid{root: n}
}

func vec(a [3]float64) v3.Vec {
	return v3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Tube creates a solid cylinder whose start disc is centred on origin and
// which extends length along axis.
func (k *SdfxKernel) Tube(origin, axis [3]float64, length, radius float64) (kernel.Solid, error) {
	if !finite(origin[0], origin[1], origin[2], axis[0], axis[1], axis[2], length, radius) {
		return nil, fmt.Errorf("sdfx: tube: non-finite input: %w", kernel.ErrDegenerate)
	}
	if length <= 0 || radius <= 0 {
		return nil, fmt.Errorf("sdfx: tube length %g radius %g: %w", length, radius, kernel.ErrDegenerate)
	}
	a := vec(axis)
	if a.Length() < 1e-12 {
		return nil, fmt.Errorf("sdfx: tube: zero axis: %w", kernel.ErrDegenerate)
	}
	id := int(k.tubeIDs.Add(1))
	return wrap(leafNode(newTube(id, vec(origin), a, length, radius))), nil
}

// Union returns the union of two solids. Each call creates a new junction
// that Fillet can later round.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	l, err := unwrap(a)
	if err != nil {
		return nil, fmt.Errorf("sdfx: union: %w", err)
	}
	r, err := unwrap(b)
	if err != nil {
		return nil, fmt.Errorf("sdfx: union: %w", err)
	}
	return wrap(unionNode(l, r, int(k.joinIDs.Add(1)), 0)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	l, err := unwrap(a)
	if err != nil {
		return nil, fmt.Errorf("sdfx: difference: %w", err)
	}
	r, err := unwrap(b)
	if err != nil {
		return nil, fmt.Errorf("sdfx: difference: %w", err)
	}
	return wrap(differenceNode(l, r)), nil
}

// Fillet rounds the junctions that produced the given edges by radius.
// Blends accumulate, so a second pass adds to the first. Edges that do not
// come from a union of this solid are ignored. If any selected junction
// would exceed its feature limit nothing is applied and ErrFilletTooLarge
// is returned.
func (k *SdfxKernel) Fillet(s kernel.Solid, edges []kernel.Edge, radius float64) (kernel.Solid, error) {
	root, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("sdfx: fillet: %w", err)
	}
	if !finite(radius) {
		return nil, fmt.Errorf("sdfx: fillet: radius %g: %w", radius, kernel.ErrDegenerate)
	}
	if radius <= 0 {
		return s, nil
	}

	current := root.blends()
	limit := make(map[int]float64)
	for _, e := range edges {
		if e.Junction == kernel.NoJunction {
			continue
		}
		if _, ok := current[e.Junction]; !ok {
			continue
		}
		if f, ok := limit[e.Junction]; !ok || e.Feature < f {
			limit[e.Junction] = e.Feature
		}
	}
	if len(limit) == 0 {
		return s, nil
	}

	add := make(map[int]float64, len(limit))
	for j, feature := range limit {
		if current[j]+radius > maxBlendRatio*feature {
			return nil, fmt.Errorf("sdfx: fillet radius %g at junction %d (blend %g, feature %g): %w",
				radius, j, current[j], feature, kernel.ErrFilletTooLarge)
		}
		add[j] = radius
	}
	return wrap(root.reblend(add)), nil
}

// Heal removes tubes that contribute nothing to the boundary: union
// members buried strictly inside the rest of the solid and cut members that
// lie strictly outside it. The returned solid has the same volume.
func (k *SdfxKernel) Heal(s kernel.Solid) (kernel.Solid, error) {
	root, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("sdfx: heal: %w", err)
	}
	for _, t := range root.tubes() {
		rest := root.without(t.id)
		if rest == nil {
			continue
		}
		cut := negated(root.paths()[t.id])
		if redundant(t, rest, cut) {
			root = rest
		}
	}
	return wrap(root), nil
}

// redundant samples the surface and axis of t against rest.
func redundant(t *tube, rest *node, cut bool) bool {
	const rings, around = 9, 24
	check := func(p v3.Vec) bool {
		d := rest.eval(p)
		if cut {
			return d > surfaceTol
		}
		return d < -surfaceTol
	}
	for i := 0; i < rings; i++ {
		h := t.length * float64(i) / float64(rings-1)
		if !check(t.base.Add(t.axis.MulScalar(h))) {
			return false
		}
		for j := 0; j < around; j++ {
			if !check(t.sidePoint(2*math.Pi*float64(j)/around, h)) {
				return false
			}
		}
	}
	return true
}

// Edges traces the sharp boundary curves of the solid.
func (k *SdfxKernel) Edges(s kernel.Solid) ([]kernel.Edge, error) {
	root, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("sdfx: edges: %w", err)
	}
	return newTracer(root).edges(), nil
}

// Measure samples the solid on a voxel grid with the given number of cells
// along its longest bounding-box axis.
func (k *SdfxKernel) Measure(s kernel.Solid, cells int) (kernel.Measurement, error) {
	root, err := unwrap(s)
	if err != nil {
		return kernel.Measurement{}, fmt.Errorf("sdfx: measure: %w", err)
	}
	return measure(root.sdf, cells)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	root, err := unwrap(s)
	if err != nil {
		return nil, fmt.Errorf("sdfx: mesh: %w", err)
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(root.sdf, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
