package fillet

import (
	"errors"
	"testing"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel/sdfx"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var zAxis = [3]float64{0, 0, 1}

// tJunction is a trunk of radius 10 with a radius 5 side branch. The
// junction accepts a total blend of 2.5.
func tJunction(t *testing.T, k kernel.Kernel) kernel.Solid {
	t.Helper()
	trunk, err := k.Tube([3]float64{}, zAxis, 100, 10)
	require.NoError(t, err)
	branch, err := k.Tube([3]float64{0, 0, 50}, [3]float64{1, 0, 0}, 40, 5)
	require.NoError(t, err)
	s, err := k.Union(trunk, branch)
	require.NoError(t, err)
	return s
}

func TestClassifyBareTube(t *testing.T) {
	k := sdfx.New()
	s, err := k.Tube([3]float64{}, zAxis, 30, 4)
	require.NoError(t, err)

	c, err := New(k).Classify(s)
	require.NoError(t, err)
	assert.Len(t, c.Rims, 2)
	assert.Empty(t, c.Seams)
	assert.Empty(t, c.Excluded)
}

func TestClassifyTJunction(t *testing.T) {
	k := sdfx.New()
	c, err := New(k).Classify(tJunction(t, k))
	require.NoError(t, err)
	assert.Len(t, c.Rims, 3)
	require.Len(t, c.Seams, 1)
	assert.NotEqual(t, kernel.NoJunction, c.Seams[0].Junction)
	assert.Empty(t, c.Excluded)
}

func TestFilletLadder(t *testing.T) {
	k := sdfx.New()
	s := tJunction(t, k)

	tests := []struct {
		name     string
		target   float64
		applied  bool
		scale    float64
		attempts int
	}{
		{"full radius fits", 2, true, 1.0, 1},
		{"third scale fits", 4, true, 0.6, 3},
		{"smallest scale fits", 12, true, 0.2, 6},
		{"nothing fits", 100, false, 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, rep := New(k).Fillet(s, tt.target)
			assert.Equal(t, tt.applied, rep.Applied)
			assert.InDelta(t, tt.scale, rep.Scale, 1e-12)
			assert.Equal(t, tt.attempts, rep.Attempts)
			assert.Equal(t, 3, rep.Rims)
			assert.Equal(t, 1, rep.Seams)
			if tt.applied {
				assert.NoError(t, rep.Err)
				assert.InDelta(t, tt.target*tt.scale, rep.Radius, 1e-12)
				assert.NotSame(t, s, out)
			} else {
				assert.ErrorIs(t, rep.Err, kernel.ErrFilletTooLarge)
				assert.Same(t, s, out, "failed pass must return its input")
				assert.NotEmpty(t, rep.Error())
			}
		})
	}
}

func TestFilletNoOps(t *testing.T) {
	k := sdfx.New()
	s := tJunction(t, k)
	bare, err := k.Tube([3]float64{}, zAxis, 30, 4)
	require.NoError(t, err)

	tests := []struct {
		name   string
		solid  kernel.Solid
		target float64
	}{
		{"zero target", s, 0},
		{"negative target", s, -1},
		{"no seams", bare, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, rep := New(k).Fillet(tt.solid, tt.target)
			assert.Same(t, tt.solid, out)
			assert.False(t, rep.Applied)
			assert.NoError(t, rep.Err)
			assert.NotEmpty(t, rep.Skipped)
			assert.Zero(t, rep.Attempts)
		})
	}
}

func TestRound(t *testing.T) {
	k := sdfx.New()
	s := tJunction(t, k)
	m := metrics.New()

	_, reps := New(k, WithLabel("shell"), WithMetrics(m)).Round(s, 2, 1)
	require.Len(t, reps, 2)

	assert.Equal(t, PassMajor, reps[0].Pass)
	assert.True(t, reps[0].Applied)
	assert.Equal(t, 1.0, reps[0].Scale)

	// The major blend leaves 0.5 of headroom: 1.0, 0.8 and 0.6 are refused.
	assert.Equal(t, PassMicro, reps[1].Pass)
	assert.True(t, reps[1].Applied)
	assert.InDelta(t, 0.4, reps[1].Scale, 1e-12)
	assert.Equal(t, 4, reps[1].Attempts)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilletAttempts.WithLabelValues("shell", PassMajor)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FilletAttempts.WithLabelValues("shell", PassMicro)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilletOutcomes.WithLabelValues("shell", PassMicro, metrics.OutcomeApplied)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.Edges.WithLabelValues("shell", "rim")))
}

func TestFilletFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	k := sdfx.New()
	s := tJunction(t, k)
	m := metrics.New()

	_, rep := New(k, WithLogger(zap.New(core)), WithMetrics(m), WithLabel("lumen")).Fillet(s, 100)
	require.Error(t, rep.Err)

	entries := logs.FilterMessage("rounding skipped, every radius scale failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lumen", entries[0].ContextMap()["solid"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilletOutcomes.WithLabelValues("lumen", PassSingle, metrics.OutcomeFailed)))
}

func TestWithScales(t *testing.T) {
	k := sdfx.New()
	_, rep := New(k, WithScales(0.5)).Fillet(tJunction(t, k), 4)
	assert.True(t, rep.Applied)
	assert.Equal(t, 1, rep.Attempts)
	assert.InDelta(t, 2.0, rep.Radius, 1e-12)
}

// brokenKernel fails every edge query.
type brokenKernel struct{ kernel.Kernel }

var errBroken = errors.New("edge query exploded")

func (brokenKernel) Edges(kernel.Solid) ([]kernel.Edge, error) { return nil, errBroken }

func TestFilletEdgeQueryFailure(t *testing.T) {
	k := sdfx.New()
	s := tJunction(t, k)
	out, rep := New(brokenKernel{k}).Fillet(s, 2)
	assert.Same(t, s, out)
	assert.ErrorIs(t, rep.Err, errBroken)
	assert.False(t, rep.Applied)
}
