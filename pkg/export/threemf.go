package export

import (
	"fmt"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/hpinc/go3mf"
)

// Write3MF saves m as a single-object 3MF package in millimetres.
// Coincident vertices are welded so the mesh is indexed.
func Write3MF(path string, m *kernel.Mesh) error {
	model := Model3MF(m)
	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return err
	}
	if err := w.Encode(model); err != nil {
		w.Close()
		return fmt.Errorf("encode 3mf: %w", err)
	}
	return w.Close()
}

// Model3MF converts m into a go3mf model with one build item.
func Model3MF(m *kernel.Mesh) *go3mf.Model {
	mesh := new(go3mf.Mesh)
	index := make(map[go3mf.Point3D]uint32)
	vertex := func(p [3]float32) uint32 {
		pt := go3mf.Point3D(p)
		if i, ok := index[pt]; ok {
			return i
		}
		i := uint32(len(mesh.Vertices.Vertex))
		mesh.Vertices.Vertex = append(mesh.Vertices.Vertex, pt)
		index[pt] = i
		return i
	}
	for i := 0; i < m.TriangleCount(); i++ {
		c := m.Triangle(i)
		a, b, d := vertex(c[0]), vertex(c[1]), vertex(c[2])
		// Triangles collapsed by welding are dropped.
		if a == b || b == d || a == d {
			continue
		}
		mesh.Triangles.Triangle = append(mesh.Triangles.Triangle, go3mf.Triangle{V1: a, V2: b, V3: d})
	}

	name := m.Name
	if name == "" {
		name = "vessel"
	}
	model := &go3mf.Model{Units: go3mf.UnitMillimeter}
	model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{
		ID:   1,
		Name: name,
		Type: go3mf.ObjectTypeModel,
		Mesh: mesh,
	})
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: 1})
	return model
}
