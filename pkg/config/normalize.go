package config

import (
	"fmt"
	"sort"
)

// legacyKeys maps historical spellings to their canonical key.
var legacyKeys = map[string]string{
	"diamter":  "diameter",
	"diamters": "diameters",
}

// Normalize returns a copy of raw with every legacy key spelling replaced by
// its canonical form, at any nesting depth. Supplying both spellings in the
// same block is an error because the intended value is ambiguous.
func Normalize(raw map[string]any) (map[string]any, error) {
	var errs ValidationErrors
	out := normalizeMap(raw, "", &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func normalizeMap(m map[string]any, prefix string, errs *ValidationErrors) map[string]any {
	out := make(map[string]any, len(m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		canonical := k
		if c, ok := legacyKeys[k]; ok {
			canonical = c
			if _, both := m[c]; both {
				*errs = append(*errs, ValidationError{
					Field:    join(prefix, c),
					Message:  fmt.Sprintf("both %q and legacy %q given", c, k),
					Severity: SeverityError,
				})
				continue
			}
		}
		out[canonical] = normalizeValue(m[k], join(prefix, canonical), errs)
	}
	return out
}

func normalizeValue(v any, path string, errs *ValidationErrors) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t, path, errs)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = val
		}
		return normalizeMap(m, path, errs)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e, fmt.Sprintf("%s[%d]", path, i), errs)
		}
		return out
	}
	return v
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
