package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by toZygo.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a keyword marker string written by toZygo.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a script value into the plain Go value a YAML decoder
// would have produced for the same field.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt, *zygo.SexpFloat:
		return toFloat64(v)
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		if name, ok := isKW(v); ok {
			return name, nil
		}
		return v.S, nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = toValue(item); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value %T (%s)", s, s.SexpString(nil))
}

// keyName maps a script keyword to its record key.
func keyName(kw string) string {
	return strings.ReplaceAll(kw, "-", "_")
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// block describes one (name :key value ...) builtin that fills a nested
// record section.
type block struct {
	builtin string // registered name, snake_case
	key     string // record key the section is stored under
	suffix  string // appended to every keyword, e.g. "_rounding"
	flag    string // boolean record key set by :enabled, if any
	always  bool   // section is written even when disabled and empty
}

var blocks = []block{
	{builtin: "main_branch", key: "main_branch_params"},
	{builtin: "primary_branches", key: "primary_branch_params"},
	{builtin: "secondary_branches", key: "secondary_branch_params", flag: "add_secondary_branches", always: true},
	{builtin: "adapter", key: "adapter_params", flag: "add_adapter"},
	{builtin: "rounding", key: "rounding", suffix: "_rounding"},
	{builtin: "output", key: "output"},
}

// registerBuiltins installs the .vtree builtins into a zygomys environment.
// Each builtin writes its section into rec.
//
// Source must pass through toZygo first so that :keyword tokens arrive as
// recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, rec map[string]any) {
	for _, b := range blocks {
		b := b
		env.AddFunction(b.builtin, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			display := strings.ReplaceAll(b.builtin, "_", "-")
			if _, dup := rec[b.key]; dup {
				return zygo.SexpNull, fmt.Errorf("%s: declared more than once", display)
			}
			pa := parseArgs(args)
			if len(pa.positional) > 0 {
				return zygo.SexpNull, fmt.Errorf("%s: unexpected positional argument %s",
					display, pa.positional[0].SexpString(nil))
			}

			section := make(map[string]any, len(pa.kw))
			enabled := true
			for _, kw := range pa.order {
				v, err := toValue(pa.kw[kw])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", display, kw, err)
				}
				if kw == "enabled" && b.flag != "" {
					on, ok := v.(bool)
					if !ok {
						return zygo.SexpNull, fmt.Errorf("%s: enabled: expected true or false", display)
					}
					enabled = on
					continue
				}
				key := keyName(kw)
				if b.suffix != "" && !strings.HasSuffix(key, b.suffix) {
					key += b.suffix
				}
				section[key] = v
			}

			if b.flag != "" {
				rec[b.flag] = enabled
			}
			if len(section) > 0 || b.flag == "" || b.always {
				rec[b.key] = section
			}
			return zygo.SexpNull, nil
		})
	}

	// (wall-thickness 2)
	env.AddFunction("wall_thickness", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("wall-thickness requires exactly 1 argument, got %d", len(args))
		}
		if _, dup := rec["wall_thickness"]; dup {
			return zygo.SexpNull, fmt.Errorf("wall-thickness: declared more than once")
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wall-thickness: %w", err)
		}
		rec["wall_thickness"] = f
		return zygo.SexpNull, nil
	})
}
