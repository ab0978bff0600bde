package fillet

import (
	"fmt"
	"math"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/logging"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultScales are the radius multipliers tried in order. The first one
// the kernel accepts wins.
var DefaultScales = []float64{1.0, 0.8, 0.6, 0.4, 0.3, 0.2}

// Pass names used in reports, logs, and metrics.
const (
	PassMajor  = "major"
	PassMicro  = "micro"
	PassSingle = "single"
)

// Report describes one fillet pass.
type Report struct {
	Solid    string  `json:"solid"`
	Pass     string  `json:"pass"`
	Target   float64 `json:"target"`
	Radius   float64 `json:"radius"` // applied radius, 0 when nothing was applied
	Scale    float64 `json:"scale"`
	Attempts int     `json:"attempts"`
	Applied  bool    `json:"applied"`
	Rims     int     `json:"rims"`
	Seams    int     `json:"seams"`
	Excluded int     `json:"excluded"`
	Skipped  string  `json:"skipped,omitempty"` // why the pass was a no-op
	Err      error   `json:"-"`
}

// Error returns the failure message, or "".
func (r Report) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Engine rounds the seams of solids through a kernel.
type Engine struct {
	kernel  kernel.Kernel
	logger  *zap.Logger
	metrics *metrics.Recorder
	scales  []float64
	label   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Fillet failures are logged as warnings.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// WithMetrics records attempts and outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithScales replaces the retry ladder.
func WithScales(scales ...float64) Option {
	return func(e *Engine) { e.scales = append([]float64(nil), scales...) }
}

// WithLabel names the solid in reports, logs, and metrics.
func WithLabel(label string) Option {
	return func(e *Engine) { e.label = label }
}

// New creates an Engine over k.
func New(k kernel.Kernel, opts ...Option) *Engine {
	e := &Engine{
		kernel: k,
		logger: zap.NewNop(),
		scales: DefaultScales,
		label:  "solid",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify samples and partitions the edges of s.
func (e *Engine) Classify(s kernel.Solid) (Classification, error) {
	edges, err := e.kernel.Edges(s)
	if err != nil {
		return Classification{}, fmt.Errorf("fillet: classify: %w", err)
	}
	return Classify(edges), nil
}

// Fillet rounds the seams of s by target, retrying at smaller radii. It
// never fails: when every scale is rejected, s is returned unchanged and
// the report carries the error.
func (e *Engine) Fillet(s kernel.Solid, target float64) (kernel.Solid, Report) {
	return e.fillet(s, target, PassSingle)
}

// Round runs the major pass and then the micro pass.
func (e *Engine) Round(s kernel.Solid, major, micro float64) (kernel.Solid, []Report) {
	s, first := e.fillet(s, major, PassMajor)
	s, second := e.fillet(s, micro, PassMicro)
	return s, []Report{first, second}
}

func (e *Engine) fillet(s kernel.Solid, target float64, pass string) (kernel.Solid, Report) {
	rep := Report{Solid: e.label, Pass: pass, Target: target}
	log := e.logger.With(zap.String("solid", e.label), zap.String("pass", pass), zap.Float64("target", target))

	if !(target > 0) || math.IsInf(target, 0) {
		rep.Skipped = "no rounding requested"
		e.done(rep)
		return s, rep
	}

	c, err := e.Classify(s)
	if err != nil {
		rep.Err = err
		log.Warn("edge classification failed, leaving solid unrounded", zap.Error(err))
		e.done(rep)
		return s, rep
	}
	rep.Rims, rep.Seams, rep.Excluded = len(c.Rims), len(c.Seams), len(c.Excluded)
	e.metrics.EdgesClassified(e.label, rep.Rims, rep.Seams, rep.Excluded)
	for _, x := range c.Excluded {
		log.Debug("edge excluded from rounding", zap.Int("edge", x.Edge.ID), zap.Error(x.Err))
	}

	if len(c.Seams) == 0 {
		rep.Skipped = "no seam edges"
		log.Debug("nothing to round", zap.Int("rims", rep.Rims))
		e.done(rep)
		return s, rep
	}

	var lastErr error
	for _, scale := range e.scales {
		radius := target * scale
		rep.Attempts++
		e.metrics.FilletAttempt(e.label, pass)

		out, err := e.kernel.Fillet(s, c.Seams, radius)
		if err != nil {
			lastErr = err
			log.Debug("fillet attempt rejected", zap.Float64("radius", radius), zap.Error(err))
			continue
		}
		rep.Applied, rep.Radius, rep.Scale = true, radius, scale
		log.Info("seams rounded",
			zap.Float64("radius", radius),
			zap.Float64("scale", scale),
			zap.Int("seams", rep.Seams),
			zap.Int("attempts", rep.Attempts),
		)
		e.done(rep)
		return out, rep
	}

	rep.Err = fmt.Errorf("fillet: %s %s pass: all %d radius scales failed for target %g: %w",
		e.label, pass, rep.Attempts, target, lastErr)
	log.Warn("rounding skipped, every radius scale failed", zap.Int("attempts", rep.Attempts), zap.Error(lastErr))
	e.done(rep)
	return s, rep
}

func (e *Engine) done(rep Report) {
	outcome := metrics.OutcomeSkipped
	switch {
	case rep.Applied:
		outcome = metrics.OutcomeApplied
	case rep.Err != nil:
		outcome = metrics.OutcomeFailed
	}
	e.metrics.FilletDone(rep.Solid, rep.Pass, outcome, rep.Scale)
}
