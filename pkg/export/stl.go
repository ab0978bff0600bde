package export

import (
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// WriteSTL saves m as a binary STL file.
func WriteSTL(path string, m *kernel.Mesh) error {
	return render.SaveSTL(path, triangles(m))
}

func triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, m.TriangleCount())
	for i := range out {
		c := m.Triangle(i)
		var t sdf.Triangle3
		for j := 0; j < 3; j++ {
			t[j] = v3.Vec{X: float64(c[j][0]), Y: float64(c[j][1]), Z: float64(c[j][2])}
		}
		out[i] = &t
	}
	return out
}
