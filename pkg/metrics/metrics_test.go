package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.Union("shell")
	r.Union("shell")
	r.Union("lumen")
	r.HealFailed("lumen")
	r.EdgesClassified("shell", 4, 1, 2)
	r.FilletAttempt("shell", "major")
	r.FilletAttempt("shell", "major")
	r.FilletDone("shell", "major", OutcomeApplied, 0.8)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Unions.WithLabelValues("shell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Unions.WithLabelValues("lumen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HealFailures.WithLabelValues("lumen")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.Edges.WithLabelValues("shell", "rim")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Edges.WithLabelValues("shell", "excluded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.FilletAttempts.WithLabelValues("shell", "major")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilletOutcomes.WithLabelValues("shell", "major", OutcomeApplied)))
	assert.Equal(t, 0.8, testutil.ToFloat64(r.FilletScale.WithLabelValues("shell", "major")))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Union("shell")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Unions.WithLabelValues("shell")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Union("shell")
	r.ObserveStage("shell", time.Second)
	r.FilletDone("shell", "major", OutcomeFailed, 0)
	assert.Nil(t, r.Registry())
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStage("hollow", 250*time.Millisecond)
	r.SetVolume("vessel", 1234.5)

	path := filepath.Join(t.TempDir(), "vesselgen.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `vesselgen_stage_duration_seconds_count{stage="hollow"} 1`), text)
	assert.True(t, strings.Contains(text, `vesselgen_solid_volume_mm3{solid="vessel"} 1234.5`), text)
}
