package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
main_branch_params: {diameter: 20, length: 120}
primary_branch_params:
  angles: [90]
  relative_positions: [0.5]
  diameters: [10]
  length: 50
secondary_branch_params: {angles: [], relative_positions: [], diameters: [], length: 20}
wall_thickness: 3
add_secondary_branches: false
add_adapter: false
rounding:
  external_intersection_rounding: 2
  external_micro_rounding: 0
  internal_intersection_rounding: 0
  internal_micro_rounding: 0
output: {folder: out, filename: scenario.stl}
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() {
		configPath, metricsFile, outDir, outFile = "", "", "", ""
		measureCells = 0
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vesselgen version dev\n", out)
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	out, _, err := execute(t, "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 1 primary, 0 secondary branches, adapter off")
}

func TestValidateReportsEveryField(t *testing.T) {
	doc := strings.Replace(scenarioYAML, "relative_positions: [0.5]", "relative_positions: [1.5]", 1)
	doc = strings.Replace(doc, "wall_thickness: 3", "wall_thickness: -1", 1)
	path := writeConfig(t, doc)

	_, errOut, err := execute(t, "validate", "-c", path)
	require.Error(t, err)
	assert.Contains(t, errOut, "primary_branch_params.relative_positions[0]")
	assert.Contains(t, errOut, "wall_thickness")
}

func TestValidateWithoutConfig(t *testing.T) {
	_, _, err := execute(t, "validate")
	assert.ErrorIs(t, err, errNoConfig)
}

func TestGenerateCommand(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "vesselgen.prom")

	out, _, err := execute(t, "generate", "-c", path,
		"--out-dir", dir, "--filename", "vessel.3mf", "--resolution", "40",
		"--metrics-file", metricsPath)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "vessel.3mf"))
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "vessel.3mf"))
	assert.Contains(t, out, "shell  major")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `vesselgen_fillet_outcomes_total{outcome="applied",pass="major",solid="shell"} 1`)
}

func TestInspectCommand(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	out, _, err := execute(t, "inspect", "-c", path, "--cells", "48")
	require.NoError(t, err)
	assert.Contains(t, out, "primary[0]")
	assert.Contains(t, out, "SOLID")
	assert.Contains(t, out, "vessel")
}

func TestInspectDerivesCells(t *testing.T) {
	path := writeConfig(t, scenarioYAML)
	out, _, err := execute(t, "inspect", "-c", path)
	require.NoError(t, err)
	for _, solid := range []string{"shell", "lumen", "vessel"} {
		assert.Regexp(t, `(?m)^`+solid+`\s+\S+\s+1\s`, out, "%s is one component", solid)
	}
}
