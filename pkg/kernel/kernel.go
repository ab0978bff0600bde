// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) provide tube primitives, boolean composition,
// junction rounding, and boundary-edge probing behind this interface so
// the tree assembler and fillet engine never see a concrete backend.
package kernel

import "errors"

// NoJunction marks an edge that was not produced by a union.
const NoJunction = -1

// Sentinel errors shared by kernel implementations.
var (
	// ErrForeignSolid is returned when a Solid from another kernel is passed in.
	ErrForeignSolid = errors.New("kernel: solid was not created by this kernel")

	// ErrFilletTooLarge is returned when a rounding radius exceeds the local
	// feature size of at least one selected junction.
	ErrFilletTooLarge = errors.New("kernel: fillet radius exceeds local feature size")

	// ErrDegenerate is returned for primitives with non-positive dimensions.
	ErrDegenerate = errors.New("kernel: degenerate primitive")
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation. Solids are values:
// every kernel operation returns a new Solid and never mutates its inputs.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Edge is a boundary curve of a solid's surface, sampled as points.
// The kernel reports the raw curve; deciding whether it is a rim or a seam
// is left to the caller.
type Edge struct {
	ID     int          `json:"id"`
	Points [][3]float64 `json:"points"`

	// Junction identifies the union that created the edge, or NoJunction.
	Junction int `json:"junction"`

	// Blend is the rounding radius currently applied at Junction.
	Blend float64 `json:"blend"`

	// Feature is the smallest tube radius meeting at the edge.
	Feature float64 `json:"feature"`
}

// Measurement summarizes a voxel sampling of a solid.
type Measurement struct {
	Volume     float64 `json:"volume"`     // mm³
	Components int     `json:"components"` // 6-connected voxel components
	CellSize   float64 `json:"cellSize"`   // voxel edge length in mm
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Tube(origin, axis [3]float64, length, radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)

	// Finishing
	Fillet(s Solid, edges []Edge, radius float64) (Solid, error)
	Heal(s Solid) (Solid, error)

	// Inspection
	Edges(s Solid) ([]Edge, error)
	Measure(s Solid, cells int) (Measurement, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
