package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedExamples(t *testing.T) {
	yamlCfg, res, err := LoadFile("../../examples/vascular_tree.yaml")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Len(t, yamlCfg.Primary, 6)
	assert.Len(t, yamlCfg.Secondary, 12)
	assert.True(t, yamlCfg.AdapterEnabled)
	assert.InDelta(t, 0.25*210, yamlCfg.Primary[0].Position, 1e-9)
	assert.Equal(t, 5, yamlCfg.Secondary[11].Parent)

	scriptCfg, _, err := LoadFile("../../examples/vascular_tree.vtree")
	require.NoError(t, err)

	// The two files differ only in output format.
	scriptCfg.Output.Filename = yamlCfg.Output.Filename
	if diff := cmp.Diff(yamlCfg, scriptCfg); diff != "" {
		t.Errorf("yaml and script examples differ (-yaml +script):\n%s", diff)
	}

	a, _, err := LoadFile("../../examples/scenario_a.yaml")
	require.NoError(t, err)
	assert.False(t, a.AdapterEnabled)
	assert.Equal(t, Rounding{}, a.Rounding)
}
