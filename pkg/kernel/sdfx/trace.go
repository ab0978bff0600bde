package sdfx

import (
	"math"
	"sort"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tracing resolution. Boundary curves are found by sampling every tube face
// along lines and bisecting sign changes of the other tubes' distance.
const (
	angularSamples = 128
	capSamples     = 32
	maxAxialStep   = 0.5  // mm between samples along a tube side
	surfaceTol     = 1e-6 // |d| below this counts as "on the surface"
	boundaryTol    = 1e-5
	bisectSteps    = 60
	linkFactor     = 4.0 // cluster linkage, in multiples of the sampling step
)

// surfaceRef names one face of one tube.
type surfaceRef struct {
	tube  int
	patch patch
}

func (a surfaceRef) less(b surfaceRef) bool {
	if a.tube != b.tube {
		return a.tube < b.tube
	}
	return a.patch < b.patch
}

// edgeKey is the unordered pair of faces whose meeting forms a curve.
type edgeKey struct {
	a, b surfaceRef
}

func makeKey(a, b surfaceRef) edgeKey {
	if b.less(a) {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

func (k edgeKey) less(o edgeKey) bool {
	if k.a != o.a {
		return k.a.less(o.a)
	}
	return k.b.less(o.b)
}

// tracer extracts the sharp boundary curves of one CSG tree.
type tracer struct {
	root   *node
	tubes  []*tube
	byID   map[int]*tube
	paths  map[int][]*node
	points map[edgeKey][]v3.Vec
}

func newTracer(root *node) *tracer {
	tr := &tracer{
		root:   root,
		tubes:  root.tubes(),
		byID:   make(map[int]*tube),
		paths:  root.paths(),
		points: make(map[edgeKey][]v3.Vec),
	}
	for _, t := range tr.tubes {
		tr.byID[t.id] = t
	}
	return tr
}

// edges traces the curves and returns the clustered curves in a stable order.
func (tr *tracer) edges() []kernel.Edge {
	for _, t := range tr.tubes {
		tr.traceRims(t)
	}
	for i, a := range tr.tubes {
		for _, b := range tr.tubes[i+1:] {
			if a.id == b.id || !overlaps(a, b) {
				continue
			}
			tr.tracePair(a, b)
			tr.tracePair(b, a)
		}
	}

	keys := make([]edgeKey, 0, len(tr.points))
	for k := range tr.points {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	var out []kernel.Edge
	for _, k := range keys {
		link := linkFactor * math.Max(tr.step(k.a.tube), tr.step(k.b.tube))
		for _, cluster := range clusterPoints(tr.points[k], link) {
			if len(cluster) < 2 {
				continue
			}
			e := kernel.Edge{
				ID:       len(out),
				Points:   make([][3]float64, len(cluster)),
				Junction: kernel.NoJunction,
				Feature:  math.Min(tr.byID[k.a.tube].radius, tr.byID[k.b.tube].radius),
			}
			for i, p := range cluster {
				e.Points[i] = [3]float64{p.X, p.Y, p.Z}
			}
			if k.a.tube != k.b.tube {
				if j := tr.lca(k.a.tube, k.b.tube); j != nil && j.op == opUnion {
					e.Junction = j.junction
					e.Blend = j.blend
				}
			}
			out = append(out, e)
		}
	}
	return out
}

// step is the coarsest sampling distance used on a tube.
func (tr *tracer) step(id int) float64 {
	t := tr.byID[id]
	arc := 2 * math.Pi * t.radius / angularSamples
	return math.Max(arc, math.Max(t.length/float64(axialSteps(t)), t.radius/capSamples))
}

func axialSteps(t *tube) int {
	return int(math.Max(8, math.Ceil(t.length/maxAxialStep)))
}

// traceRims samples both end circles of t.
func (tr *tracer) traceRims(t *tube) {
	for _, end := range []patch{patchStart, patchEnd} {
		key := makeKey(surfaceRef{t.id, patchSide}, surfaceRef{t.id, end})
		for i := 0; i < angularSamples; i++ {
			phi := 2 * math.Pi * float64(i) / angularSamples
			p := t.capPoint(end, phi, t.radius)
			if tr.isCrease(p, t.id, t.id) {
				tr.points[key] = append(tr.points[key], p)
			}
		}
	}
}

// tracePair finds where the faces of a cross the surface of b.
func (tr *tracer) tracePair(a, b *tube) {
	n := axialSteps(a)
	for i := 0; i < angularSamples; i++ {
		phi := 2 * math.Pi * float64(i) / angularSamples
		side := func(s float64) v3.Vec { return a.sidePoint(phi, s) }
		scanLine(side, 0, a.length, n, b.Evaluate, func(p v3.Vec) {
			tr.record(p, surfaceRef{a.id, patchSide}, b)
		})
		for _, end := range []patch{patchStart, patchEnd} {
			end := end
			disc := func(s float64) v3.Vec { return a.capPoint(end, phi, s) }
			scanLine(disc, 0, a.radius, capSamples, b.Evaluate, func(p v3.Vec) {
				tr.record(p, surfaceRef{a.id, end}, b)
			})
		}
	}
}

func (tr *tracer) record(p v3.Vec, on surfaceRef, b *tube) {
	if !tr.isCrease(p, on.tube, b.id) {
		return
	}
	key := makeKey(on, surfaceRef{b.id, b.nearestPatch(p)})
	tr.points[key] = append(tr.points[key], p)
}

// isCrease reports whether p is a sharp boundary point formed only by the
// faces of tubes a and b. Points that touch a third surface are ambiguous
// (coincident faces) and rejected.
func (tr *tracer) isCrease(p v3.Vec, a, b int) bool {
	for _, t := range tr.tubes {
		if t.id == a || t.id == b {
			continue
		}
		if math.Abs(t.Evaluate(p)) <= surfaceTol {
			return false
		}
	}
	return math.Abs(tr.root.eval(p)) <= boundaryTol
}

// lca returns the lowest node containing both tubes.
func (tr *tracer) lca(a, b int) *node {
	pa, pb := tr.paths[a], tr.paths[b]
	var common *node
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] != pb[i] {
			break
		}
		common = pa[i]
	}
	return common
}

// scanLine walks n+1 samples of f along line(s) for s in [s0, s1] and emits
// the bisected root of every strict sign change. A single ambiguous sample
// between two signed ones is tolerated; longer runs mean coincident faces.
func scanLine(line func(float64) v3.Vec, s0, s1 float64, n int, f func(v3.Vec) float64, emit func(v3.Vec)) {
	prevS := s0
	prevV := f(line(s0))
	prevOK := math.Abs(prevV) > surfaceTol
	gap := 0
	for i := 1; i <= n; i++ {
		s := s0 + (s1-s0)*float64(i)/float64(n)
		v := f(line(s))
		if math.Abs(v) <= surfaceTol {
			gap++
			continue
		}
		if prevOK && gap <= 1 && (v > 0) != (prevV > 0) {
			emit(line(bisect(line, f, prevS, s, prevV > 0)))
		}
		prevS, prevV, prevOK, gap = s, v, true, 0
	}
}

func bisect(line func(float64) v3.Vec, f func(v3.Vec) float64, lo, hi float64, loPositive bool) float64 {
	for i := 0; i < bisectSteps && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		if (f(line(mid)) > 0) == loPositive {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func overlaps(a, b *tube) bool {
	ba, bb := a.BoundingBox(), b.BoundingBox()
	return ba.Min.X <= bb.Max.X && bb.Min.X <= ba.Max.X &&
		ba.Min.Y <= bb.Max.Y && bb.Min.Y <= ba.Max.Y &&
		ba.Min.Z <= bb.Max.Z && bb.Min.Z <= ba.Max.Z
}

// clusterPoints splits points into single-linkage groups. Group order and
// point order follow the input so results are deterministic.
func clusterPoints(points []v3.Vec, link float64) [][]v3.Vec {
	parent := make([]int, len(points))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	link2 := link * link
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d := points[i].Sub(points[j])
			if d.Dot(d) <= link2 {
				ri, rj := find(i), find(j)
				if ri != rj {
					if ri < rj {
						parent[rj] = ri
					} else {
						parent[ri] = rj
					}
				}
			}
		}
	}
	index := make(map[int]int)
	var out [][]v3.Vec
	for i, p := range points {
		r := find(i)
		g, ok := index[r]
		if !ok {
			g = len(out)
			index[r] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], p)
	}
	return out
}
