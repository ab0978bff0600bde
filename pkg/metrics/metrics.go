// Package metrics records Prometheus metrics for generator runs.
//
// Each Recorder owns its registry so that repeated runs in one process
// (tests, the inspect command) never collide on global collectors. The CLI
// dumps the registry in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fillet outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Recorder holds the collectors of one registry.
type Recorder struct {
	registry *prometheus.Registry

	Unions         *prometheus.CounterVec
	HealFailures   *prometheus.CounterVec
	Edges          *prometheus.CounterVec
	FilletAttempts *prometheus.CounterVec
	FilletOutcomes *prometheus.CounterVec
	FilletScale    *prometheus.GaugeVec
	StageDuration  *prometheus.HistogramVec
	Volume         *prometheus.GaugeVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		Unions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vesselgen_unions_total",
				Help: "Boolean unions performed while assembling a solid",
			},
			[]string{"solid"},
		),
		HealFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vesselgen_heal_failures_total",
				Help: "Best-effort heal passes that failed and were skipped",
			},
			[]string{"solid"},
		),
		Edges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vesselgen_edges_total",
				Help: "Boundary edges seen by the classifier, by kind",
			},
			[]string{"solid", "kind"},
		),
		FilletAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vesselgen_fillet_attempts_total",
				Help: "Fillet attempts, one per tried radius scale",
			},
			[]string{"solid", "pass"},
		),
		FilletOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vesselgen_fillet_outcomes_total",
				Help: "Fillet passes by final outcome",
			},
			[]string{"solid", "pass", "outcome"},
		),
		FilletScale: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vesselgen_fillet_scale",
				Help: "Radius scale accepted by the last fillet pass (0 when none)",
			},
			[]string{"solid", "pass"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vesselgen_stage_duration_seconds",
				Help:    "Wall time of pipeline stages",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),
		Volume: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vesselgen_solid_volume_mm3",
				Help: "Sampled volume of finished solids",
			},
			[]string{"solid"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Union counts one union into solid.
func (r *Recorder) Union(solid string) {
	if r == nil {
		return
	}
	r.Unions.WithLabelValues(solid).Inc()
}

// HealFailed counts a skipped heal pass.
func (r *Recorder) HealFailed(solid string) {
	if r == nil {
		return
	}
	r.HealFailures.WithLabelValues(solid).Inc()
}

// EdgesClassified adds classifier counts for solid.
func (r *Recorder) EdgesClassified(solid string, rims, seams, excluded int) {
	if r == nil {
		return
	}
	r.Edges.WithLabelValues(solid, "rim").Add(float64(rims))
	r.Edges.WithLabelValues(solid, "seam").Add(float64(seams))
	r.Edges.WithLabelValues(solid, "excluded").Add(float64(excluded))
}

// FilletAttempt counts one tried scale.
func (r *Recorder) FilletAttempt(solid, pass string) {
	if r == nil {
		return
	}
	r.FilletAttempts.WithLabelValues(solid, pass).Inc()
}

// FilletDone records the outcome of a pass and the accepted scale.
func (r *Recorder) FilletDone(solid, pass, outcome string, scale float64) {
	if r == nil {
		return
	}
	r.FilletOutcomes.WithLabelValues(solid, pass, outcome).Inc()
	r.FilletScale.WithLabelValues(solid, pass).Set(scale)
}

// SetVolume records a sampled solid volume.
func (r *Recorder) SetVolume(solid string, mm3 float64) {
	if r == nil {
		return
	}
	r.Volume.WithLabelValues(solid).Set(mm3)
}

// WriteTextfile writes every metric to path in the textfile collector format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
