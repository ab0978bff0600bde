package sdfx

import (
	"fmt"
	"math"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	defaultMeasureCells = 64
	maxVoxels           = 1 << 24
)

// measure counts inside voxel centres and labels their 6-connected
// components.
func measure(s sdf.SDF3, cells int) (kernel.Measurement, error) {
	if cells <= 0 {
		cells = defaultMeasureCells
	}
	bb := s.BoundingBox()
	size := bb.Max.Sub(bb.Min)
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	if !(longest > 0) {
		return kernel.Measurement{}, fmt.Errorf("sdfx: measure: empty bounding box: %w", kernel.ErrDegenerate)
	}
	cell := longest / float64(cells)
	nx := int(math.Ceil(size.X/cell)) + 2
	ny := int(math.Ceil(size.Y/cell)) + 2
	nz := int(math.Ceil(size.Z/cell)) + 2
	if nx*ny*nz > maxVoxels {
		return kernel.Measurement{}, fmt.Errorf("sdfx: measure: %dx%dx%d grid exceeds %d voxels", nx, ny, nz, maxVoxels)
	}

	origin := bb.Min.Sub(v3.Vec{X: cell, Y: cell, Z: cell}).Add(v3.Vec{X: cell / 2, Y: cell / 2, Z: cell / 2})
	inside := make([]bool, nx*ny*nz)
	idx := func(x, y, z int) int { return (z*ny+y)*nx + x }
	count := 0
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				p := origin.Add(v3.Vec{X: float64(x) * cell, Y: float64(y) * cell, Z: float64(z) * cell})
				if s.Evaluate(p) < 0 {
					inside[idx(x, y, z)] = true
					count++
				}
			}
		}
	}

	components := 0
	seen := make([]bool, len(inside))
	var stack [][3]int
	steps := [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				i := idx(x, y, z)
				if !inside[i] || seen[i] {
					continue
				}
				components++
				seen[i] = true
				stack = append(stack[:0], [3]int{x, y, z})
				for len(stack) > 0 {
					c := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					for _, d := range steps {
						px, py, pz := c[0]+d[0], c[1]+d[1], c[2]+d[2]
						if px < 0 || py < 0 || pz < 0 || px >= nx || py >= ny || pz >= nz {
							continue
						}
						j := idx(px, py, pz)
						if inside[j] && !seen[j] {
							seen[j] = true
							stack = append(stack, [3]int{px, py, pz})
						}
					}
				}
			}
		}
	}

	return kernel.Measurement{
		Volume:     float64(count) * cell * cell * cell,
		Components: components,
		CellSize:   cell,
	}, nil
}
