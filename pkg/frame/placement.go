// Package frame resolves branch anchors and orientations in the shared
// model frame.
//
// The trunk runs along +Z from the origin. Every branch is rotated about
// the shared Y axis, so a placement is fully described by an anchor point
// and one angle: the branch axis is (sin a, 0, cos a).
package frame

import (
	"errors"
	"fmt"
	"math"
)

// ErrOffsetOutOfRange is returned when an offset fraction lies outside [0,1].
var ErrOffsetOutOfRange = errors.New("frame: offset fraction out of range [0,1]")

// Placement is an absolute anchor plus a rotation about the Y axis.
type Placement struct {
	Origin   [3]float64 `json:"origin"`
	AngleDeg float64    `json:"angleDeg"`
}

// Trunk returns the root placement: the origin, pointing along +Z.
func Trunk() Placement {
	return Placement{}
}

// Primary places a branch on the trunk at an absolute distance along the
// trunk axis. The trunk is unrotated so no projection is needed.
func Primary(position, angleDeg float64) Placement {
	return Placement{Origin: [3]float64{0, 0, position}, AngleDeg: angleDeg}
}

// Resolve places a child branch relative to a parent anchored on the trunk
// at parentPosition with parentAngleDeg. The child anchor sits
// offsetFraction*parentLength along the parent's rotated axis.
func Resolve(parentPosition, parentAngleDeg, offsetFraction, parentLength, childAngleDeg float64) (Placement, error) {
	if math.IsNaN(offsetFraction) || offsetFraction < 0 || offsetFraction > 1 {
		return Placement{}, fmt.Errorf("frame: resolve offset %g: %w", offsetFraction, ErrOffsetOutOfRange)
	}
	parent := Primary(parentPosition, parentAngleDeg)
	return Placement{
		Origin:   parent.At(offsetFraction * parentLength),
		AngleDeg: childAngleDeg,
	}, nil
}

// Direction returns the unit axis of the placement.
func (p Placement) Direction() [3]float64 {
	a := p.AngleDeg * math.Pi / 180
	return [3]float64{math.Sin(a), 0, math.Cos(a)}
}

// At returns the point distance units along the placement axis.
// Negative distances walk backwards from the anchor.
func (p Placement) At(distance float64) [3]float64 {
	d := p.Direction()
	return [3]float64{
		p.Origin[0] + distance*d[0],
		p.Origin[1] + distance*d[1],
		p.Origin[2] + distance*d[2],
	}
}

// String implements fmt.Stringer.
func (p Placement) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f) @ %.1f°", p.Origin[0], p.Origin[1], p.Origin[2], p.AngleDeg)
}
