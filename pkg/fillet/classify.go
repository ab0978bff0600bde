// Package fillet classifies the boundary edges of a solid and rounds the
// junction seams while leaving open tube rims sharp.
package fillet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"gonum.org/v1/gonum/mat"
)

// Kind is the two-variant edge tag.
type Kind int

const (
	Rim  Kind = iota // closed, planar, constant-radius circle: an open tube end
	Seam             // anything else: union intersection curves
)

func (k Kind) String() string {
	switch k {
	case Rim:
		return "rim"
	case Seam:
		return "seam"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrUnresolved marks an edge whose geometry could not be determined.
var ErrUnresolved = errors.New("fillet: edge geometry unresolved")

// Fit tolerances, relative to the edge's own size.
const (
	minSamples    = 8
	relTol        = 1e-3
	closureFactor = 4.0 // largest allowed angular gap, in mean spacings
	coincidentTol = 1e-9
)

// Excluded is an edge left out of rounding and why.
type Excluded struct {
	Edge kernel.Edge
	Err  error
}

// Classification partitions a solid's edges. Every edge lands in exactly
// one of the three sets.
type Classification struct {
	Rims     []kernel.Edge
	Seams    []kernel.Edge
	Excluded []Excluded
}

// Total returns the number of classified edges.
func (c Classification) Total() int {
	return len(c.Rims) + len(c.Seams) + len(c.Excluded)
}

// Classify tags every edge. Edges whose geometry cannot be resolved are excluded.
func Classify(edges []kernel.Edge) Classification {
	var c Classification
	for _, e := range edges {
		kind, err := KindOf(e)
		switch {
		case err != nil:
			c.Excluded = append(c.Excluded, Excluded{Edge: e, Err: err})
		case kind == Rim:
			c.Rims = append(c.Rims, e)
		default:
			c.Seams = append(c.Seams, e)
		}
	}
	return c
}

// KindOf decides whether e is a full circle of constant radius. It returns
// ErrUnresolved when the samples are too few or degenerate to tell.
func KindOf(e kernel.Edge) (Kind, error) {
	n := len(e.Points)
	if n < minSamples {
		return 0, fmt.Errorf("edge %d: %d samples, need %d: %w", e.ID, n, minSamples, ErrUnresolved)
	}
	for _, p := range e.Points {
		if !finite(p[0]) || !finite(p[1]) || !finite(p[2]) {
			return 0, fmt.Errorf("edge %d: non-finite sample: %w", e.ID, ErrUnresolved)
		}
	}

	plane, err := fitPlane(e.Points)
	if err != nil {
		return 0, fmt.Errorf("edge %d: %w", e.ID, err)
	}
	tol := relTol * plane.extent

	// A straight segment is never a rim.
	if plane.spread <= tol {
		return Seam, nil
	}
	if plane.maxOffset > tol {
		return Seam, nil
	}

	uv := plane.project(e.Points)
	cx, cy, r, err := fitCircle(uv)
	if err != nil {
		return 0, fmt.Errorf("edge %d: %w", e.ID, err)
	}
	for _, q := range uv {
		if math.Abs(math.Hypot(q[0]-cx, q[1]-cy)-r) > relTol*r {
			return Seam, nil
		}
	}
	if maxAngularGap(uv, cx, cy) > closureFactor*2*math.Pi/float64(n) {
		return Seam, nil
	}
	return Rim, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// plane is a least-squares plane through a point cloud.
type plane struct {
	centroid  [3]float64
	normal    [3]float64
	u, v      [3]float64
	extent    float64 // largest distance of a sample from the centroid
	spread    float64 // RMS extent along the second principal axis
	maxOffset float64 // largest distance of a sample from the plane
}

// fitPlane runs a principal component analysis of the samples. The
// eigenvector of the smallest covariance eigenvalue is the plane normal.
func fitPlane(pts [][3]float64) (plane, error) {
	var pl plane
	n := float64(len(pts))
	for _, p := range pts {
		for i := 0; i < 3; i++ {
			pl.centroid[i] += p[i]
		}
	}
	for i := 0; i < 3; i++ {
		pl.centroid[i] /= n
	}

	cov := mat.NewSymDense(3, nil)
	for _, p := range pts {
		d := sub(p, pl.centroid)
		pl.extent = math.Max(pl.extent, norm(d))
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				cov.SetSym(i, j, cov.At(i, j)+d[i]*d[j]/n)
			}
		}
	}
	if pl.extent <= coincidentTol*math.Max(1, norm(pl.centroid)) {
		return pl, fmt.Errorf("all samples coincide: %w", ErrUnresolved)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return pl, fmt.Errorf("covariance factorization failed: %w", ErrUnresolved)
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Values are ascending.
	col := func(j int) [3]float64 {
		return [3]float64{vecs.At(0, j), vecs.At(1, j), vecs.At(2, j)}
	}
	pl.normal, pl.v, pl.u = col(0), col(1), col(2)
	pl.spread = math.Sqrt(math.Max(values[1], 0))

	for _, p := range pts {
		pl.maxOffset = math.Max(pl.maxOffset, math.Abs(dot(sub(p, pl.centroid), pl.normal)))
	}
	return pl, nil
}

// project maps samples into plane coordinates.
func (pl plane) project(pts [][3]float64) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		d := sub(p, pl.centroid)
		out[i] = [2]float64{dot(d, pl.u), dot(d, pl.v)}
	}
	return out
}

// fitCircle is the algebraic (Kåsa) least-squares circle fit: solve
// x²+y² + Dx + Ey + F = 0 for D, E, F.
func fitCircle(pts [][2]float64) (cx, cy, r float64, err error) {
	n := len(pts)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, p := range pts {
		a.Set(i, 0, p[0])
		a.Set(i, 1, p[1])
		a.Set(i, 2, 1)
		b.SetVec(i, -(p[0]*p[0] + p[1]*p[1]))
	}
	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return 0, 0, 0, fmt.Errorf("circle fit: %v: %w", err, ErrUnresolved)
	}
	d, e, f := sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)
	cx, cy = -d/2, -e/2
	r2 := cx*cx + cy*cy - f
	if !(r2 > 0) || !finite(r2) {
		return 0, 0, 0, fmt.Errorf("circle fit: no real radius: %w", ErrUnresolved)
	}
	return cx, cy, math.Sqrt(r2), nil
}

// maxAngularGap returns the widest angle between consecutive samples seen
// from the centre, including the wrap-around gap.
func maxAngularGap(pts [][2]float64, cx, cy float64) float64 {
	angles := make([]float64, len(pts))
	for i, p := range pts {
		angles[i] = math.Atan2(p[1]-cy, p[0]-cx)
	}
	sort.Float64s(angles)
	gap := angles[0] + 2*math.Pi - angles[len(angles)-1]
	for i := 1; i < len(angles); i++ {
		gap = math.Max(gap, angles[i]-angles[i-1])
	}
	return gap
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func dot(a, b [3]float64) float64    { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func norm(a [3]float64) float64      { return math.Sqrt(dot(a, a)) }
