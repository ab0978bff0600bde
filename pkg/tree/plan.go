package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/config"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/frame"
)

// PerforationAllowance is how far lumen pieces run past the open ends of
// their shell counterparts, in mm, so the cut leaves no skin behind.
const PerforationAllowance = 1.0

// ErrInvalidPlan is returned when the branch graph is malformed.
var ErrInvalidPlan = errors.New("tree: invalid branch plan")

// PieceKind says what part of the vessel a piece is.
type PieceKind int

const (
	PieceTrunk PieceKind = iota
	PieceAdapterCap
	PieceAdapter
	PiecePrimary
	PieceSecondary
)

func (k PieceKind) String() string {
	switch k {
	case PieceTrunk:
		return "trunk"
	case PieceAdapterCap:
		return "adapter-cap"
	case PieceAdapter:
		return "adapter"
	case PiecePrimary:
		return "primary"
	case PieceSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("PieceKind(%d)", int(k))
	}
}

// Segment is the cylinder one piece contributes to one solid.
type Segment struct {
	Placement frame.Placement `json:"placement"`
	Radius    float64         `json:"radius"`
	Length    float64         `json:"length"`
	Padding   float64         `json:"padding"`
}

// Piece is one node of the branch graph. Shell or Lumen is nil when the
// piece does not contribute to that solid.
type Piece struct {
	Name   string    `json:"name"`
	Kind   PieceKind `json:"kind"`
	Parent int       `json:"parent"` // index into Plan.Pieces, -1 for the root
	Shell  *Segment  `json:"shell,omitempty"`
	Lumen  *Segment  `json:"lumen,omitempty"`
}

// Plan is the resolved branch graph in construction order.
type Plan struct {
	Pieces []Piece `json:"pieces"`
}

// Segments returns the shell or lumen cylinders in construction order.
func (p *Plan) Segments(lumen bool) []Segment {
	var out []Segment
	for _, pc := range p.Pieces {
		seg := pc.Shell
		if lumen {
			seg = pc.Lumen
		}
		if seg != nil {
			out = append(out, *seg)
		}
	}
	return out
}

// NewPlan resolves every placement of cfg once. Order: trunk, adapter
// pieces, primaries in input order, then two secondaries per primary
// through a running index.
func NewPlan(cfg *config.TreeConfig) (*Plan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidPlan)
	}
	wall := cfg.WallThickness
	allow := PerforationAllowance
	trunkR, trunkL := cfg.Trunk.Radius(), cfg.Trunk.Length

	plan := &Plan{}
	add := func(pc Piece) int {
		plan.Pieces = append(plan.Pieces, pc)
		return len(plan.Pieces) - 1
	}

	// The lumen starts past the proximal end unless the adapter closes it.
	lumenStart := -allow
	if cfg.AdapterEnabled {
		lumenStart = 0
	}
	root := add(Piece{
		Name:   "trunk",
		Kind:   PieceTrunk,
		Parent: -1,
		Shell:  &Segment{Placement: frame.Trunk(), Radius: trunkR, Length: trunkL, Padding: wall},
		Lumen: &Segment{
			Placement: frame.Primary(lumenStart, 0),
			Radius:    trunkR,
			Length:    trunkL + allow - lumenStart,
		},
	})

	if cfg.AdapterEnabled {
		a := cfg.Adapter
		depth := wall + a.Length
		// The cap overlaps the trunk by one wall so the two never share a
		// face. It closes nothing when the wall is zero.
		if wall > 0 {
			add(Piece{
				Name:   "adapter-cap",
				Kind:   PieceAdapterCap,
				Parent: root,
				Shell:  &Segment{Placement: frame.Primary(-wall, 0), Radius: trunkR, Length: 2 * wall, Padding: wall},
			})
		}
		add(Piece{
			Name:   "adapter",
			Kind:   PieceAdapter,
			Parent: root,
			Shell:  &Segment{Placement: frame.Primary(-depth, 0), Radius: a.ExternalDiameter / 2, Length: depth},
			Lumen: &Segment{
				Placement: frame.Primary(-depth-allow, 0),
				Radius:    a.InternalDiameter / 2,
				Length:    depth + 2*allow,
			},
		})
	}

	primaries := make([]int, len(cfg.Primary))
	for i, b := range cfg.Primary {
		if b.Parent != config.TrunkParent {
			return nil, fmt.Errorf("%w: primary[%d] has parent %d, want the trunk", ErrInvalidPlan, i, b.Parent)
		}
		p := frame.Primary(b.Position, b.AngleDeg)
		primaries[i] = add(Piece{
			Name:   fmt.Sprintf("primary[%d]", i),
			Kind:   PiecePrimary,
			Parent: root,
			Shell:  &Segment{Placement: p, Radius: b.Radius(), Length: b.Length, Padding: wall},
			Lumen:  &Segment{Placement: p, Radius: b.Radius(), Length: b.Length + allow},
		})
	}

	if cfg.SecondaryEnabled {
		need := config.SecondariesPerPrimary * len(cfg.Primary)
		if len(cfg.Secondary) < need {
			return nil, fmt.Errorf("%w: %d secondaries for %d primaries, need %d",
				ErrInvalidPlan, len(cfg.Secondary), len(cfg.Primary), need)
		}
		j := 0
		for i, parent := range cfg.Primary {
			for n := 0; n < config.SecondariesPerPrimary; n++ {
				b := cfg.Secondary[j]
				if b.Parent != i {
					return nil, fmt.Errorf("%w: secondary[%d] has parent %d, want primary %d", ErrInvalidPlan, j, b.Parent, i)
				}
				p, err := frame.Resolve(parent.Position, parent.AngleDeg, b.RelativePosition, parent.Length, parent.AngleDeg-b.AngleDeg)
				if err != nil {
					return nil, fmt.Errorf("tree: secondary[%d]: %w", j, err)
				}
				add(Piece{
					Name:   fmt.Sprintf("secondary[%d]", j),
					Kind:   PieceSecondary,
					Parent: primaries[i],
					Shell:  &Segment{Placement: p, Radius: b.Radius(), Length: b.Length, Padding: wall},
					Lumen:  &Segment{Placement: p, Radius: b.Radius(), Length: b.Length + allow},
				})
				j++
			}
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks that the plan is a tree: every parent reference exists,
// there is exactly one root, and no piece is its own ancestor.
func (p *Plan) Validate() error {
	var problems []string

	roots := 0
	for i, pc := range p.Pieces {
		switch {
		case pc.Parent == -1:
			roots++
		case pc.Parent < 0 || pc.Parent >= len(p.Pieces):
			problems = append(problems, fmt.Sprintf("%s (%d): parent %d does not exist", pc.Name, i, pc.Parent))
		}
	}
	if roots != 1 {
		problems = append(problems, fmt.Sprintf("%d roots, want 1", roots))
	}

	// Three-colour walk up the parent chain.
	const (
		white = iota
		grey
		black
	)
	colour := make([]int, len(p.Pieces))
	for i := range p.Pieces {
		var chain []int
		cur := i
		for cur >= 0 && cur < len(p.Pieces) && colour[cur] == white {
			colour[cur] = grey
			chain = append(chain, cur)
			cur = p.Pieces[cur].Parent
		}
		if cur >= 0 && cur < len(p.Pieces) && colour[cur] == grey {
			problems = append(problems, fmt.Sprintf("cycle through %s (%d)", p.Pieces[cur].Name, cur))
		}
		for _, c := range chain {
			colour[c] = black
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, strings.Join(problems, "; "))
	}
	return nil
}

// ThinnestFeature returns the smallest material or void thickness the plan
// produces: a wall between a shell and its lumen, the adapter cap, or the
// narrowest lumen. It returns 0 for an empty plan.
func (p *Plan) ThinnestFeature() float64 {
	min := 0.0
	keep := func(x float64) {
		if x > 0 && (min == 0 || x < min) {
			min = x
		}
	}
	for _, pc := range p.Pieces {
		switch {
		case pc.Shell != nil && pc.Lumen != nil:
			keep(pc.Shell.Radius + pc.Shell.Padding - pc.Lumen.Radius)
			keep(pc.Lumen.Radius)
		case pc.Shell != nil:
			keep(pc.Shell.Padding)
			keep(pc.Shell.Radius + pc.Shell.Padding)
		case pc.Lumen != nil:
			keep(pc.Lumen.Radius)
		}
	}
	return min
}
