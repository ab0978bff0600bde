package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Source rewriting
// ---------------------------------------------------------------------------

func TestToZygo(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(main-branch :diameter 20)`,
			expect: `(main_branch "__kw_diameter" 20)`,
		},
		{
			name:   "hyphenated keyword kept intact",
			input:  `(primary-branches :relative-positions [0.5])`,
			expect: `(primary_branches "__kw_relative-positions" [0.5])`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `[120 -140]`,
			expect: `[120 -140]`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "comment ends at newline",
			input:  "(wall-thickness 2) ; mm\n(output :file-name \"a\")",
			expect: "(wall_thickness 2) // mm\n(output \"__kw_file-name\" \"a\")",
		},
		{
			name:   "kebab names become snake case",
			input:  `(def trunk-length 210)`,
			expect: `(def trunk_length 210)`,
		},
		{
			name:   "minus before a number keeps its meaning",
			input:  `(def y x-1)`,
			expect: `(def y x-1)`,
		},
		{
			name:   "escaped quote stays inside string",
			input:  `"a \" b-c :d"`,
			expect: `"a \" b-c :d"`,
		},
		{
			name:   "raw string preserved",
			input:  "`b-c :d`",
			expect: "`b-c :d`",
		},
		{
			name:   "unterminated string copied through",
			input:  `"open-ended`,
			expect: `"open-ended`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, toZygo(tt.input))
		})
	}
}

// ---------------------------------------------------------------------------
// Block builtins
// ---------------------------------------------------------------------------

func evaluate(t *testing.T, source string) map[string]any {
	t.Helper()
	rec, evalErrs, err := NewEngine().Evaluate(source)
	require.NoError(t, err)
	require.Empty(t, evalErrs)
	require.NotNil(t, rec)
	return rec
}

func evalFails(t *testing.T, source string) []EvalError {
	t.Helper()
	rec, evalErrs, err := NewEngine().Evaluate(source)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.NotEmpty(t, evalErrs)
	return evalErrs
}

func TestFullTree(t *testing.T) {
	source := `
;; trunk and primaries from one length variable
(def trunk-length 210)

(main-branch :diameter 20 :length trunk-length)
(primary-branches
  :angles [120 -140]
  :relative-positions [0.25 0.35]
  :diameters [10 12]
  :length 80)
(secondary-branches
  :angles [30 -30 30 -30]
  :relative-positions [0.4 0.8 0.8 0.4]
  :diameters [8 7 7 8]
  :length 50)
(wall-thickness 2)
(adapter :internal-diameter 10 :external-diameter 14 :length 15)
(rounding :external-intersection 2 :external-micro 0.5
          :internal-intersection 1 :internal-micro 0.2)
(output :folder "out" :filename "tree.stl")
`
	got := evaluate(t, source)
	want := map[string]any{
		"main_branch_params": map[string]any{"diameter": 20.0, "length": 210.0},
		"primary_branch_params": map[string]any{
			"angles":             []any{120.0, -140.0},
			"relative_positions": []any{0.25, 0.35},
			"diameters":          []any{10.0, 12.0},
			"length":             80.0,
		},
		"secondary_branch_params": map[string]any{
			"angles":             []any{30.0, -30.0, 30.0, -30.0},
			"relative_positions": []any{0.4, 0.8, 0.8, 0.4},
			"diameters":          []any{8.0, 7.0, 7.0, 8.0},
			"length":             50.0,
		},
		"add_secondary_branches": true,
		"wall_thickness":         2.0,
		"add_adapter":            true,
		"adapter_params": map[string]any{
			"internal_diameter": 10.0,
			"external_diameter": 14.0,
			"length":            15.0,
		},
		"rounding": map[string]any{
			"external_intersection_rounding": 2.0,
			"external_micro_rounding":        0.5,
			"internal_intersection_rounding": 1.0,
			"internal_micro_rounding":        0.2,
		},
		"output": map[string]any{"folder": "out", "filename": "tree.stl"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDisabledBlocks(t *testing.T) {
	got := evaluate(t, `
(secondary-branches :enabled false)
(adapter :enabled false)
`)
	assert.Equal(t, false, got["add_secondary_branches"])
	assert.Equal(t, false, got["add_adapter"])
	assert.Equal(t, map[string]any{}, got["secondary_branch_params"])
	assert.NotContains(t, got, "adapter_params")
}

func TestListArgumentsAndComputedValues(t *testing.T) {
	got := evaluate(t, `
(def n 0.5)
(primary-branches :angles (list 90) :relative-positions (list n) :diameters [(* 2 5)] :length 80)
`)
	p, ok := got["primary_branch_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{90.0}, p["angles"])
	assert.Equal(t, []any{0.5}, p["relative_positions"])
	assert.Equal(t, []any{10.0}, p["diameters"])
}

func TestLegacyKeyPassesThrough(t *testing.T) {
	// Spelling is canonicalized by the config loader, not the script layer.
	got := evaluate(t, `(main-branch :diamter 20 :length 100)`)
	assert.Equal(t, map[string]any{"diamter": 20.0, "length": 100.0}, got["main_branch_params"])
}

func TestDuplicateBlockRejected(t *testing.T) {
	errs := evalFails(t, `
(wall-thickness 2)
(wall-thickness 3)
`)
	assert.Contains(t, errs[0].Message, "more than once")
}

func TestBlockErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"positional argument", `(main-branch 20)`},
		{"non-numeric wall", `(wall-thickness "thick")`},
		{"wall arity", `(wall-thickness 1 2)`},
		{"bad enabled flag", `(adapter :enabled 1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source)
		})
	}
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "relative_positions", keyName("relative-positions"))
	assert.Equal(t, "length", keyName("length"))
}
