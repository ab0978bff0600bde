// Package pipeline runs the generator stages in order: plan the branch
// graph, assemble the shell and the lumen, round both, hollow, and export.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/config"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/export"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/fillet"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/logging"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/metrics"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/tree"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names used in timings, logs, and metrics.
const (
	StagePlan       = "plan"
	StageShell      = "assemble_shell"
	StageLumen      = "assemble_lumen"
	StageRoundShell = "round_shell"
	StageRoundLumen = "round_lumen"
	StageHollow     = "hollow"
	StageMeasure    = "measure"
	StageMesh       = "mesh"
	StageExport     = "export"
)

// ErrNoVessel is returned when Measure or Export runs before Build.
var ErrNoVessel = errors.New("pipeline: no vessel built")

// Derived measurement resolution: at least two voxels across the thinnest
// feature, within a bounded grid.
const (
	voxelsPerFeature = 2
	minMeasureCells  = 32
	maxMeasureCells  = 512
)

// StageTiming is the wall time of one stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Result is everything one run produced.
type Result struct {
	RunID string     `json:"runId"`
	Plan  *tree.Plan `json:"plan"`

	// Shell and Lumen are released after the cut unless the Generator was
	// built WithParts.
	Shell  kernel.Solid `json:"-"`
	Lumen  kernel.Solid `json:"-"`
	Vessel kernel.Solid `json:"-"`

	Fillets []fillet.Report    `json:"fillets"`
	Heals   []tree.HealOutcome `json:"heals"`
	Timings []StageTiming      `json:"timings"`

	// Set by Measure.
	Measurement  *kernel.Measurement `json:"measurement,omitempty"`
	MeasureCells int                 `json:"measureCells,omitempty"`

	// Set by Export.
	OutputPath string `json:"outputPath,omitempty"`
	Triangles  int    `json:"triangles,omitempty"`
}

// Warnings returns the fillet passes that fell back to no rounding.
func (r *Result) Warnings() []fillet.Report {
	var out []fillet.Report
	for _, f := range r.Fillets {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Generator owns the kernel and the ambient stack for a run.
type Generator struct {
	kernel       kernel.Kernel
	logger       *zap.Logger
	metrics      *metrics.Recorder
	measureCells int
	keepParts    bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = logging.OrNop(l) }
}

// WithMetrics records stage timings and forwards the recorder to every
// stage.
func WithMetrics(m *metrics.Recorder) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithMeasureCells fixes the voxel resolution used by Measure. Zero or
// less derives it from the thinnest wall of the plan.
func WithMeasureCells(n int) Option {
	return func(g *Generator) { g.measureCells = n }
}

// WithParts keeps the rounded shell and lumen in the Result after the cut.
func WithParts(keep bool) Option {
	return func(g *Generator) { g.keepParts = keep }
}

// New creates a Generator over k.
func New(k kernel.Kernel, opts ...Option) *Generator {
	g := &Generator{kernel: k, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) stage(res *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	res.Timings = append(res.Timings, StageTiming{Stage: name, Duration: d})
	g.metrics.ObserveStage(name, d)
	g.logger.Debug("stage finished", zap.String("run_id", res.RunID), zap.String("stage", name), zap.Duration("elapsed", d), zap.Error(err))
	return err
}

// Build turns a validated config into the hollow vessel. Both the shell
// and the lumen are rounded before the cut. Rounding never fails a run; a
// pass that could not be applied shows up in Result.Warnings.
func (g *Generator) Build(cfg *config.TreeConfig) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	res := &Result{RunID: uuid.NewString()}
	log := g.logger.With(zap.String("run_id", res.RunID))
	log.Info("generation started",
		zap.Int("primaries", len(cfg.Primary)),
		zap.Int("secondaries", len(cfg.Secondary)),
		zap.Bool("adapter", cfg.AdapterEnabled),
	)

	asm := tree.NewAssembler(g.kernel, tree.WithLogger(log), tree.WithMetrics(g.metrics))
	if err := g.stage(res, StagePlan, func() (err error) {
		res.Plan, err = tree.NewPlan(cfg)
		return err
	}); err != nil {
		return nil, err
	}
	if err := g.stage(res, StageShell, func() (err error) {
		res.Shell, err = asm.Shell(res.Plan)
		return err
	}); err != nil {
		return nil, err
	}
	if err := g.stage(res, StageLumen, func() (err error) {
		res.Lumen, err = asm.Lumen(res.Plan)
		return err
	}); err != nil {
		return nil, err
	}
	res.Heals = asm.Heals()

	round := func(solid string, s kernel.Solid, major, micro float64) kernel.Solid {
		eng := fillet.New(g.kernel,
			fillet.WithLogger(log),
			fillet.WithMetrics(g.metrics),
			fillet.WithLabel(solid),
		)
		out, reps := eng.Round(s, major, micro)
		res.Fillets = append(res.Fillets, reps...)
		return out
	}
	_ = g.stage(res, StageRoundShell, func() error {
		res.Shell = round(tree.SolidShell, res.Shell, cfg.Rounding.ExternalMajor, cfg.Rounding.ExternalMicro)
		return nil
	})
	_ = g.stage(res, StageRoundLumen, func() error {
		res.Lumen = round(tree.SolidLumen, res.Lumen, cfg.Rounding.InternalMajor, cfg.Rounding.InternalMicro)
		return nil
	})

	if err := g.stage(res, StageHollow, func() (err error) {
		res.Vessel, err = tree.Hollow(g.kernel, res.Shell, res.Lumen)
		return err
	}); err != nil {
		return nil, err
	}
	if !g.keepParts {
		res.Shell, res.Lumen = nil, nil
	}

	for _, w := range res.Warnings() {
		log.Warn("rounding fell back to sharp edges", zap.String("solid", w.Solid), zap.String("pass", w.Pass), zap.Error(w.Err))
	}
	log.Info("generation finished", zap.Int("fillet_passes", len(res.Fillets)), zap.Int("warnings", len(res.Warnings())))
	return res, nil
}

// Measure samples the vessel and records its volume.
func (g *Generator) Measure(res *Result) error {
	if res == nil || res.Vessel == nil {
		return ErrNoVessel
	}
	cells := g.MeasureCells(res)
	return g.stage(res, StageMeasure, func() error {
		m, err := g.kernel.Measure(res.Vessel, cells)
		if err != nil {
			return fmt.Errorf("pipeline: measure: %w", err)
		}
		res.Measurement, res.MeasureCells = &m, cells
		g.metrics.SetVolume(tree.SolidVessel, m.Volume)
		if res.Plan != nil {
			if thin := res.Plan.ThinnestFeature(); thin > 0 && m.CellSize > thin {
				g.logger.Warn("voxels are coarser than the thinnest wall, component count is unreliable",
					zap.String("run_id", res.RunID),
					zap.Float64("cell_size", m.CellSize),
					zap.Float64("thinnest", thin),
				)
			}
		}
		return nil
	})
}

// MeasureCells returns the voxel count along the longest axis that Measure
// uses for res: the fixed WithMeasureCells value, or enough cells to put
// two voxels across the thinnest feature of the plan.
func (g *Generator) MeasureCells(res *Result) int {
	if g.measureCells > 0 {
		return g.measureCells
	}
	if res == nil || res.Vessel == nil || res.Plan == nil {
		return minMeasureCells
	}
	thin := res.Plan.ThinnestFeature()
	if thin <= 0 {
		return minMeasureCells
	}
	lo, hi := res.Vessel.BoundingBox()
	longest := math.Max(hi[0]-lo[0], math.Max(hi[1]-lo[1], hi[2]-lo[2]))
	cells := int(math.Ceil(longest * voxelsPerFeature / thin))
	return min(max(cells, minMeasureCells), maxMeasureCells)
}

// Export meshes the vessel and writes it to path.
func (g *Generator) Export(res *Result, path string) error {
	if res == nil || res.Vessel == nil {
		return ErrNoVessel
	}
	if _, err := export.FormatOf(path); err != nil {
		return err
	}
	var mesh *kernel.Mesh
	if err := g.stage(res, StageMesh, func() (err error) {
		mesh, err = g.kernel.ToMesh(res.Vessel)
		if err != nil {
			return fmt.Errorf("pipeline: mesh: %w", err)
		}
		mesh.Name = tree.SolidVessel
		return nil
	}); err != nil {
		return err
	}
	if err := g.stage(res, StageExport, func() error {
		return export.Write(path, mesh)
	}); err != nil {
		return err
	}
	res.OutputPath = path
	res.Triangles = mesh.TriangleCount()
	g.logger.Info("model written",
		zap.String("run_id", res.RunID),
		zap.String("path", path),
		zap.Int("triangles", res.Triangles),
	)
	return nil
}

// Run builds cfg and exports it to the configured output path.
func (g *Generator) Run(cfg *config.TreeConfig) (*Result, error) {
	res, err := g.Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := g.Export(res, cfg.Output.Path()); err != nil {
		return res, err
	}
	return res, nil
}
