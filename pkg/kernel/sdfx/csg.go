package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ---------------------------------------------------------------------------
// Tube primitive
// ---------------------------------------------------------------------------

// patch names one of the three faces of a tube.
type patch int

const (
	patchSide  patch = iota // lateral surface
	patchStart              // disc at the anchor
	patchEnd                // disc at anchor + length*axis
)

// tube is a right circular cylinder anchored at base and extruded along
// axis. It implements sdf.SDF3 with an exact distance so that edge tracing and
// rendering share one definition of the surface.
type tube struct {
	id     int
	base   v3.Vec
	axis   v3.Vec // unit length
	u, v   v3.Vec // orthonormal basis of the cross-section plane
	length float64
	radius float64
}

func newTube(id int, base, axis v3.Vec, length, radius float64) *tube {
	axis = axis.Normalize()
	helper := v3.Vec{X: 1}
	if math.Abs(axis.X) > 0.9 {
		helper = v3.Vec{Y: 1}
	}
	u := helper.Sub(axis.MulScalar(helper.Dot(axis))).Normalize()
	v := axis.Cross(u)
	return &tube{id: id, base: base, axis: axis, u: u, v: v, length: length, radius: radius}
}

// local returns the axial coordinate and the radial distance of p.
func (t *tube) local(p v3.Vec) (h, rho float64) {
	d := p.Sub(t.base)
	h = d.Dot(t.axis)
	rho = d.Sub(t.axis.MulScalar(h)).Length()
	return h, rho
}

// Evaluate implements sdf.SDF3.
func (t *tube) Evaluate(p v3.Vec) float64 {
	h, rho := t.local(p)
	radial := rho - t.radius
	axial := math.Abs(h-t.length/2) - t.length/2
	outside := math.Hypot(math.Max(radial, 0), math.Max(axial, 0))
	inside := math.Min(math.Max(radial, axial), 0)
	return outside + inside
}

// BoundingBox implements sdf.SDF3.
func (t *tube) BoundingBox() sdf.Box3 {
	a := t.base
	b := t.base.Add(t.axis.MulScalar(t.length))
	e := v3.Vec{
		X: t.radius * math.Sqrt(math.Max(0, 1-t.axis.X*t.axis.X)),
		Y: t.radius * math.Sqrt(math.Max(0, 1-t.axis.Y*t.axis.Y)),
		Z: t.radius * math.Sqrt(math.Max(0, 1-t.axis.Z*t.axis.Z)),
	}
	lo := v3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
	hi := v3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
	return sdf.Box3{Min: lo.Sub(e), Max: hi.Add(e)}
}

// ring returns the unit radial direction at angle phi.
func (t *tube) ring(phi float64) v3.Vec {
	return t.u.MulScalar(math.Cos(phi)).Add(t.v.MulScalar(math.Sin(phi)))
}

// sidePoint is the point on the lateral surface at angle phi, height h.
func (t *tube) sidePoint(phi, h float64) v3.Vec {
	return t.base.Add(t.axis.MulScalar(h)).Add(t.ring(phi).MulScalar(t.radius))
}

// capPoint is the point on a cap disc at angle phi, radius rho.
func (t *tube) capPoint(p patch, phi, rho float64) v3.Vec {
	c := t.base
	if p == patchEnd {
		c = c.Add(t.axis.MulScalar(t.length))
	}
	return c.Add(t.ring(phi).MulScalar(rho))
}

// nearestPatch reports which face of t lies closest to p.
func (t *tube) nearestPatch(p v3.Vec) patch {
	h, rho := t.local(p)
	over := func(x, lo, hi float64) float64 {
		switch {
		case x < lo:
			return lo - x
		case x > hi:
			return x - hi
		}
		return 0
	}
	side := math.Hypot(rho-t.radius, over(h, 0, t.length))
	start := math.Hypot(h, over(rho, 0, t.radius))
	end := math.Hypot(h-t.length, over(rho, 0, t.radius))
	switch {
	case start < side && start <= end:
		return patchStart
	case end < side:
		return patchEnd
	}
	return patchSide
}

// ---------------------------------------------------------------------------
// CSG tree
// ---------------------------------------------------------------------------

type opKind int

const (
	opTube opKind = iota
	opUnion
	opDifference
)

// node is an immutable CSG expression. The sdfx SDF is built once at
// construction and carries the blended junctions; eval gives the sharp
// (unblended) distance that edge probing works against.
type node struct {
	op       opKind
	tube     *tube
	left     *node
	right    *node
	junction int
	blend    float64
	sdf      sdf.SDF3
}

func leafNode(t *tube) *node {
	return &node{op: opTube, tube: t, junction: -1, sdf: t}
}

func unionNode(l, r *node, junction int, blend float64) *node {
	var s sdf.SDF3 = sdf.Union3D(l.sdf, r.sdf)
	if blend > 0 {
		if u, ok := s.(*sdf.UnionSDF3); ok {
			u.SetMin(sdf.PolyMin(blend))
		}
	}
	return &node{op: opUnion, left: l, right: r, junction: junction, blend: blend, sdf: s}
}

func differenceNode(l, r *node) *node {
	return &node{op: opDifference, left: l, right: r, junction: -1, sdf: sdf.Difference3D(l.sdf, r.sdf)}
}

// eval returns the sharp signed distance of the expression at p.
func (n *node) eval(p v3.Vec) float64 {
	switch n.op {
	case opTube:
		return n.tube.Evaluate(p)
	case opUnion:
		return math.Min(n.left.eval(p), n.right.eval(p))
	default:
		return math.Max(n.left.eval(p), -n.right.eval(p))
	}
}

// tubes lists the leaves left to right.
func (n *node) tubes() []*tube {
	if n.op == opTube {
		return []*tube{n.tube}
	}
	return append(n.left.tubes(), n.right.tubes()...)
}

// paths maps each tube id to its ancestor chain, root first.
func (n *node) paths() map[int][]*node {
	out := make(map[int][]*node)
	var walk func(m *node, chain []*node)
	walk = func(m *node, chain []*node) {
		chain = append(chain, m)
		if m.op == opTube {
			if _, seen := out[m.tube.id]; !seen {
				out[m.tube.id] = append([]*node(nil), chain...)
			}
			return
		}
		walk(m.left, chain)
		walk(m.right, chain)
	}
	walk(n, nil)
	return out
}

// blends maps every union junction to its current blend radius.
func (n *node) blends() map[int]float64 {
	out := make(map[int]float64)
	var walk func(m *node)
	walk = func(m *node) {
		if m.op == opTube {
			return
		}
		if m.op == opUnion {
			out[m.junction] = m.blend
		}
		walk(m.left)
		walk(m.right)
	}
	walk(n)
	return out
}

// reblend returns a copy of n whose listed junctions have their blend
// radius increased. Untouched subtrees are shared.
func (n *node) reblend(add map[int]float64) *node {
	if n.op == opTube {
		return n
	}
	l := n.left.reblend(add)
	r := n.right.reblend(add)
	blend := n.blend
	if n.op == opUnion {
		if extra, ok := add[n.junction]; ok {
			blend += extra
		}
	}
	if l == n.left && r == n.right && blend == n.blend {
		return n
	}
	if n.op == opUnion {
		return unionNode(l, r, n.junction, blend)
	}
	return differenceNode(l, r)
}

// without returns n with the tube removed, or nil if nothing remains.
// A difference that loses its left operand disappears entirely.
func (n *node) without(id int) *node {
	switch n.op {
	case opTube:
		if n.tube.id == id {
			return nil
		}
		return n
	}
	l := n.left.without(id)
	r := n.right.without(id)
	switch {
	case l == nil && n.op == opDifference:
		return nil
	case l == nil:
		return r
	case r == nil:
		return l
	case l == n.left && r == n.right:
		return n
	case n.op == opUnion:
		return unionNode(l, r, n.junction, n.blend)
	}
	return differenceNode(l, r)
}

// negated reports whether tube id sits on the cutting side of an odd
// number of differences.
func negated(chain []*node) bool {
	neg := false
	for i := 0; i+1 < len(chain); i++ {
		if chain[i].op == opDifference && chain[i].right == chain[i+1] {
			neg = !neg
		}
	}
	return neg
}
