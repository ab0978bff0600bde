package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var zAxis = [3]float64{0, 0, 1}

func mustTube(t *testing.T, k *SdfxKernel, origin, axis [3]float64, length, radius float64) kernel.Solid {
	t.Helper()
	s, err := k.Tube(origin, axis, length, radius)
	if err != nil {
		t.Fatalf("Tube() error = %v", err)
	}
	return s
}

func mustUnion(t *testing.T, k *SdfxKernel, a, b kernel.Solid) kernel.Solid {
	t.Helper()
	s, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	return s
}

// tJunction is a vertical trunk with one horizontal side branch.
func tJunction(t *testing.T, k *SdfxKernel) kernel.Solid {
	trunk := mustTube(t, k, [3]float64{}, zAxis, 100, 10)
	branch := mustTube(t, k, [3]float64{0, 0, 50}, [3]float64{1, 0, 0}, 40, 5)
	return mustUnion(t, k, trunk, branch)
}

func countJoined(edges []kernel.Edge) (joined, free int) {
	for _, e := range edges {
		if e.Junction == kernel.NoJunction {
			free++
		} else {
			joined++
		}
	}
	return joined, free
}

func TestTubeBoundingBox(t *testing.T) {
	k := New()
	s := mustTube(t, k, [3]float64{1, 2, 3}, zAxis, 30, 5)
	min, max := s.BoundingBox()

	const tol = 1e-9
	expectMin := [3]float64{-4, -3, 3}
	expectMax := [3]float64{6, 7, 33}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestTubeRejectsDegenerate(t *testing.T) {
	k := New()
	tests := []struct {
		name           string
		axis           [3]float64
		length, radius float64
	}{
		{"zero length", zAxis, 0, 5},
		{"negative radius", zAxis, 10, -1},
		{"zero axis", [3]float64{}, 10, 5},
		{"nan length", zAxis, math.NaN(), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Tube([3]float64{}, tt.axis, tt.length, tt.radius)
			if !errors.Is(err, kernel.ErrDegenerate) {
				t.Errorf("Tube() error = %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestTubeDistance(t *testing.T) {
	tb := newTube(1, v3.Vec{}, v3.Vec{Z: 1}, 10, 2)
	tests := []struct {
		name string
		p    v3.Vec
		want float64
	}{
		{"axis centre", v3.Vec{Z: 5}, -2},
		{"side", v3.Vec{X: 2, Z: 5}, 0},
		{"beyond side", v3.Vec{X: 5, Z: 5}, 3},
		{"above end", v3.Vec{Z: 13}, 3},
		{"past rim", v3.Vec{X: 5, Z: 14}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tb.Evaluate(tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evaluate(%v) = %f, want %f", tt.p, got, tt.want)
			}
		})
	}
}

func TestForeignSolid(t *testing.T) {
	k := New()
	s := mustTube(t, k, [3]float64{}, zAxis, 10, 1)
	var foreign kernel.Solid = (*sdfxSolid)(nil)
	if _, err := k.Union(s, foreign); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Union(foreign) error = %v, want ErrForeignSolid", err)
	}
	if _, err := k.Edges(foreign); !errors.Is(err, kernel.ErrForeignSolid) {
		t.Errorf("Edges(foreign) error = %v, want ErrForeignSolid", err)
	}
}

func TestEdgesBareTube(t *testing.T) {
	k := New()
	s := mustTube(t, k, [3]float64{}, zAxis, 40, 6)
	edges, err := k.Edges(s)
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("bare tube has %d edges, want 2", len(edges))
	}
	for i, e := range edges {
		if e.Junction != kernel.NoJunction {
			t.Errorf("edge %d junction = %d, want NoJunction", i, e.Junction)
		}
		if len(e.Points) != angularSamples {
			t.Errorf("edge %d has %d points, want %d", i, len(e.Points), angularSamples)
		}
		for _, p := range e.Points {
			if r := math.Hypot(p[0], p[1]); math.Abs(r-6) > 1e-9 {
				t.Fatalf("edge %d point %v at radius %f, want 6", i, p, r)
			}
		}
	}
}

func TestEdgesTJunction(t *testing.T) {
	k := New()
	s := tJunction(t, k)
	edges, err := k.Edges(s)
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	joined, free := countJoined(edges)
	// Two trunk rims and the branch's far rim stay free; the branch start
	// disc is buried in the trunk.
	if free != 3 {
		t.Errorf("free edges = %d, want 3", free)
	}
	if joined != 1 {
		t.Fatalf("junction edges = %d, want 1", joined)
	}
	for _, e := range edges {
		if e.Junction == kernel.NoJunction {
			continue
		}
		if e.Feature != 5 {
			t.Errorf("seam feature = %f, want 5", e.Feature)
		}
		for _, p := range e.Points {
			// Every seam point lies on both surfaces.
			if r := math.Hypot(p[0], p[1]); math.Abs(r-10) > 1e-6 {
				t.Fatalf("seam point %v off trunk surface (r=%f)", p, r)
			}
			if r := math.Hypot(p[1], p[2]-50); math.Abs(r-5) > 1e-6 {
				t.Fatalf("seam point %v off branch surface (r=%f)", p, r)
			}
		}
	}
}

func TestEdgesDeterministic(t *testing.T) {
	k := New()
	s := tJunction(t, k)
	a, err := k.Edges(s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Edges(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("edge counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if len(a[i].Points) != len(b[i].Points) || a[i].Junction != b[i].Junction {
			t.Errorf("edge %d differs between runs", i)
		}
	}
}

func TestEdgesDifferenceHasNoJunctions(t *testing.T) {
	k := New()
	outer := mustTube(t, k, [3]float64{}, zAxis, 100, 10)
	bore := mustTube(t, k, [3]float64{0, 0, -1}, zAxis, 102, 6)
	s, err := k.Difference(outer, bore)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	edges, err := k.Edges(s)
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	if len(edges) != 4 {
		t.Fatalf("hollow tube has %d edges, want 4", len(edges))
	}
	joined, _ := countJoined(edges)
	if joined != 0 {
		t.Errorf("hollow tube has %d junction edges, want 0", joined)
	}
}

func TestFillet(t *testing.T) {
	k := New()
	s := tJunction(t, k)
	edges, err := k.Edges(s)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("zero radius is identity", func(t *testing.T) {
		got, err := k.Fillet(s, edges, 0)
		if err != nil {
			t.Fatalf("Fillet() error = %v", err)
		}
		if got != s {
			t.Error("Fillet(0) returned a new solid")
		}
	})

	t.Run("within feature size", func(t *testing.T) {
		got, err := k.Fillet(s, edges, 2)
		if err != nil {
			t.Fatalf("Fillet() error = %v", err)
		}
		after, err := k.Edges(got)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range after {
			if e.Junction != kernel.NoJunction && e.Blend != 2 {
				t.Errorf("junction %d blend = %f, want 2", e.Junction, e.Blend)
			}
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := k.Fillet(s, edges, 3)
		if !errors.Is(err, kernel.ErrFilletTooLarge) {
			t.Errorf("Fillet(3) error = %v, want ErrFilletTooLarge", err)
		}
	})

	t.Run("blends accumulate", func(t *testing.T) {
		once, err := k.Fillet(s, edges, 2)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := k.Fillet(once, edges, 1); !errors.Is(err, kernel.ErrFilletTooLarge) {
			t.Errorf("second pass error = %v, want ErrFilletTooLarge", err)
		}
		twice, err := k.Fillet(once, edges, 0.5)
		if err != nil {
			t.Fatalf("second pass error = %v", err)
		}
		root, _ := unwrap(twice)
		for j, b := range root.blends() {
			if b != 2.5 {
				t.Errorf("junction %d blend = %f, want 2.5", j, b)
			}
		}
	})

	t.Run("rims only is a no-op", func(t *testing.T) {
		bare := mustTube(t, k, [3]float64{}, zAxis, 10, 2)
		rims, err := k.Edges(bare)
		if err != nil {
			t.Fatal(err)
		}
		got, err := k.Fillet(bare, rims, 1)
		if err != nil {
			t.Fatalf("Fillet() error = %v", err)
		}
		if got != bare {
			t.Error("Fillet on rim edges returned a new solid")
		}
	})
}

func TestFilletLeavesInputUntouched(t *testing.T) {
	k := New()
	s := tJunction(t, k)
	edges, _ := k.Edges(s)
	if _, err := k.Fillet(s, edges, 2); err != nil {
		t.Fatal(err)
	}
	root, _ := unwrap(s)
	for j, b := range root.blends() {
		if b != 0 {
			t.Errorf("input junction %d blend = %f after Fillet, want 0", j, b)
		}
	}
}

func TestHealPrunesBuriedTube(t *testing.T) {
	k := New()
	big := mustTube(t, k, [3]float64{}, zAxis, 100, 10)
	small := mustTube(t, k, [3]float64{0, 0, 40}, [3]float64{1, 0, 0}, 5, 2)
	s := mustUnion(t, k, big, small)

	healed, err := k.Heal(s)
	if err != nil {
		t.Fatalf("Heal() error = %v", err)
	}
	root, _ := unwrap(healed)
	if n := len(root.tubes()); n != 1 {
		t.Errorf("healed solid has %d tubes, want 1", n)
	}

	// A tube that reaches the surface must survive.
	tj := tJunction(t, k)
	healed, err = k.Heal(tj)
	if err != nil {
		t.Fatalf("Heal() error = %v", err)
	}
	root, _ = unwrap(healed)
	if n := len(root.tubes()); n != 2 {
		t.Errorf("healed T-junction has %d tubes, want 2", n)
	}
}

func TestMeasureTubeVolume(t *testing.T) {
	k := New()
	s := mustTube(t, k, [3]float64{}, zAxis, 20, 5)
	m, err := k.Measure(s, 64)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	want := math.Pi * 5 * 5 * 20
	if math.Abs(m.Volume-want)/want > 0.05 {
		t.Errorf("Volume = %f, want ~%f", m.Volume, want)
	}
	if m.Components != 1 {
		t.Errorf("Components = %d, want 1", m.Components)
	}
}

func TestMeasureComponents(t *testing.T) {
	k := New()
	a := mustTube(t, k, [3]float64{}, zAxis, 20, 5)
	b := mustTube(t, k, [3]float64{40, 0, 0}, zAxis, 20, 5)
	m, err := k.Measure(mustUnion(t, k, a, b), 64)
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}
	if m.Components != 2 {
		t.Errorf("Components = %d, want 2", m.Components)
	}
}

func TestToMesh(t *testing.T) {
	k := New(WithMeshCells(40))
	mesh, err := k.ToMesh(tJunction(t, k))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	t.Logf("T-junction triangle count: %d", mesh.TriangleCount())
}

func TestClusterPoints(t *testing.T) {
	pts := []v3.Vec{{X: 0}, {X: 1}, {X: 10}, {X: 2}, {X: 11}}
	got := clusterPoints(pts, 1.5)
	if len(got) != 2 {
		t.Fatalf("clusters = %d, want 2", len(got))
	}
	if len(got[0]) != 3 || len(got[1]) != 2 {
		t.Errorf("cluster sizes = %d,%d, want 3,2", len(got[0]), len(got[1]))
	}
}
