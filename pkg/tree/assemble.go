package tree

import (
	"fmt"
	"time"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/config"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/logging"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/metrics"
	"go.uber.org/zap"
)

// Solid names used in logs and metrics.
const (
	SolidShell  = "shell"
	SolidLumen  = "lumen"
	SolidVessel = "vessel"
)

// HealOutcome records the best-effort heal pass of one assembly.
type HealOutcome struct {
	Solid   string `json:"solid"`
	Applied bool   `json:"applied"`
	Err     error  `json:"-"`
}

// Assembler folds a plan into solids.
type Assembler struct {
	kernel  kernel.Kernel
	logger  *zap.Logger
	metrics *metrics.Recorder
	heals   []HealOutcome
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = logging.OrNop(l) }
}

// WithMetrics records union counts and heal failures.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Assembler) { a.metrics = m }
}

// NewAssembler creates an Assembler over k.
func NewAssembler(k kernel.Kernel, opts ...Option) *Assembler {
	a := &Assembler{kernel: k, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Heals returns the heal outcomes of every assembly so far.
func (a *Assembler) Heals() []HealOutcome {
	return append([]HealOutcome(nil), a.heals...)
}

// Shell unions the padded pieces of plan.
func (a *Assembler) Shell(plan *Plan) (kernel.Solid, error) {
	return a.assemble(plan, SolidShell, plan.Segments(false))
}

// Lumen unions the unpadded cut pieces of plan.
func (a *Assembler) Lumen(plan *Plan) (kernel.Solid, error) {
	return a.assemble(plan, SolidLumen, plan.Segments(true))
}

func (a *Assembler) assemble(plan *Plan, name string, segs []Segment) (kernel.Solid, error) {
	start := time.Now()
	log := a.logger.With(zap.String("solid", name))
	if len(segs) == 0 {
		return nil, fmt.Errorf("tree: %s: %w: no pieces", name, ErrInvalidPlan)
	}

	var acc kernel.Solid
	for i, seg := range segs {
		piece, err := BuildCylinder(a.kernel, seg.Placement, seg.Radius, seg.Length, seg.Padding)
		if err != nil {
			return nil, fmt.Errorf("tree: %s piece %d: %w", name, i, err)
		}
		if acc == nil {
			acc = piece
			continue
		}
		acc, err = a.kernel.Union(acc, piece)
		if err != nil {
			return nil, fmt.Errorf("tree: %s union %d: %w", name, i, err)
		}
		a.metrics.Union(name)
	}

	acc = a.heal(log, name, acc)
	elapsed := time.Since(start)
	log.Info("assembled",
		zap.Int("pieces", len(segs)),
		zap.Int("plan", len(plan.Pieces)),
		zap.Duration("elapsed", elapsed),
	)
	return acc, nil
}

// heal keeps s when the kernel cannot heal it.
func (a *Assembler) heal(log *zap.Logger, name string, s kernel.Solid) kernel.Solid {
	healed, err := a.kernel.Heal(s)
	if err != nil {
		a.heals = append(a.heals, HealOutcome{Solid: name, Err: err})
		a.metrics.HealFailed(name)
		log.Warn("heal failed, keeping unhealed solid", zap.Error(err))
		return s
	}
	a.heals = append(a.heals, HealOutcome{Solid: name, Applied: true})
	return healed
}

// AssembleShell builds the exterior shell of cfg.
func AssembleShell(k kernel.Kernel, cfg *config.TreeConfig) (kernel.Solid, error) {
	plan, err := NewPlan(cfg)
	if err != nil {
		return nil, err
	}
	return NewAssembler(k).Shell(plan)
}

// AssembleLumen builds the lumen network of cfg.
func AssembleLumen(k kernel.Kernel, cfg *config.TreeConfig) (kernel.Solid, error) {
	plan, err := NewPlan(cfg)
	if err != nil {
		return nil, err
	}
	return NewAssembler(k).Lumen(plan)
}
