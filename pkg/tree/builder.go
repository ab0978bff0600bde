// Package tree lays out the branch hierarchy of a vascular tree and
// assembles it into the exterior shell, the matching lumen network, and
// the hollow vessel.
package tree

import (
	"fmt"
	"math"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/frame"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
)

// BuildCylinder returns a right circular cylinder of radius
// radius+radialPadding extruded length along the placement axis from its
// anchor.
func BuildCylinder(k kernel.Kernel, p frame.Placement, radius, length, radialPadding float64) (kernel.Solid, error) {
	switch {
	case !(radius > 0) || math.IsInf(radius, 0):
		return nil, fmt.Errorf("tree: cylinder radius %g must be positive: %w", radius, kernel.ErrDegenerate)
	case !(length > 0) || math.IsInf(length, 0):
		return nil, fmt.Errorf("tree: cylinder length %g must be positive: %w", length, kernel.ErrDegenerate)
	case !(radialPadding >= 0) || math.IsInf(radialPadding, 0):
		return nil, fmt.Errorf("tree: cylinder padding %g must not be negative: %w", radialPadding, kernel.ErrDegenerate)
	}
	return k.Tube(p.Origin, p.Direction(), length, radius+radialPadding)
}
