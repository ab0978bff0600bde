package config

import (
	"fmt"
	"math"
	"strings"
)

// ValidationSeverity indicates whether a validation finding blocks
// generation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks generation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Field    string             // dotted key path, empty for record-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
}

// ValidationErrors is every blocking finding of one validation run.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("config: %d validation error(s):\n  %s", len(v), strings.Join(msgs, "\n  "))
}

// Fields lists the offending field paths in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Field
	}
	return out
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   ValidationErrors
	Warnings []ValidationError
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns the blocking errors as an error, or nil.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return r.Errors
}

// collector accumulates findings while walking the raw record.
type collector struct {
	res ValidationResult
}

func (c *collector) errorf(field, format string, args ...any) {
	c.res.Errors = append(c.res.Errors, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

func (c *collector) warnf(field, format string, args ...any) {
	c.res.Warnings = append(c.res.Warnings, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

func (c *collector) positive(field string, v *float64) bool {
	switch {
	case v == nil:
		c.errorf(field, "required")
	case !isFinite(*v) || *v <= 0:
		c.errorf(field, "must be > 0, got %g", *v)
	default:
		return true
	}
	return false
}

func (c *collector) nonNegative(field string, v *float64) bool {
	switch {
	case v == nil:
		c.errorf(field, "required")
	case !isFinite(*v) || *v < 0:
		c.errorf(field, "must be >= 0, got %g", *v)
	default:
		return true
	}
	return false
}

func (c *collector) nonEmpty(field string, v *string) {
	if v == nil {
		c.errorf(field, "required")
	} else if strings.TrimSpace(*v) == "" {
		c.errorf(field, "must not be empty")
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks every constraint on a raw record and enumerates all
// violations rather than stopping at the first. It never mutates r.
func Validate(r *Raw) ValidationResult {
	c := &collector{}
	if r == nil {
		c.errorf("", "empty configuration")
		return c.res
	}

	trunkOK := validateTrunk(c, r.MainBranch)
	nPrimary, primaryOK := validateBranchSet(c, "primary_branch_params", r.Primary, 1)

	c.nonNegative("wall_thickness", r.WallThickness)

	if r.AddSecondary == nil {
		c.errorf("add_secondary_branches", "required")
	}
	if r.secondaryEnabled() {
		min := SecondariesPerPrimary * nPrimary
		if min < SecondariesPerPrimary {
			min = SecondariesPerPrimary
		}
		if n, ok := validateBranchSet(c, "secondary_branch_params", r.Secondary, min); ok && primaryOK && n > min {
			c.warnf("secondary_branch_params", "%d entries given, only the first %d are used", n, min)
		}
	} else if r.Secondary == nil {
		// Required even when unused; its contents are only checked when enabled.
		c.errorf("secondary_branch_params", "required")
	}

	if r.adapterEnabled() {
		validateAdapter(c, r.Adapter)
	}

	validateRounding(c, r.Rounding)

	if r.Output == nil {
		c.errorf("output", "required")
	} else {
		c.nonEmpty("output.folder", r.Output.Folder)
		c.nonEmpty("output.filename", r.Output.Filename)
	}

	if trunkOK && primaryOK {
		sizeWarnings(c, r)
	}
	return c.res
}

func validateTrunk(c *collector, t *RawTrunk) bool {
	if t == nil {
		c.errorf("main_branch_params", "required")
		return false
	}
	d := c.positive("main_branch_params.diameter", t.Diameter)
	l := c.positive("main_branch_params.length", t.Length)
	return d && l
}

// validateBranchSet checks one parallel-array block. It returns the array
// length and whether the block is fully valid.
func validateBranchSet(c *collector, name string, s *RawBranchSet, minLen int) (int, bool) {
	if s == nil {
		c.errorf(name, "required")
		return 0, false
	}
	before := len(c.res.Errors)

	arrays := []struct {
		key  string
		vals []float64
	}{
		{"angles", s.Angles},
		{"relative_positions", s.RelativePositions},
		{"diameters", s.Diameters},
	}
	n := -1
	for _, a := range arrays {
		field := name + "." + a.key
		if a.vals == nil {
			c.errorf(field, "required")
			continue
		}
		if len(a.vals) < minLen {
			c.errorf(field, "needs at least %d entries, got %d", minLen, len(a.vals))
		}
		if n < 0 {
			n = len(a.vals)
		} else if len(a.vals) != n {
			c.errorf(field, "length %d does not match %d of the other arrays", len(a.vals), n)
		}
	}

	for i, v := range s.Angles {
		if !isFinite(v) {
			c.errorf(fmt.Sprintf("%s.angles[%d]", name, i), "must be finite, got %g", v)
		}
	}
	for i, v := range s.RelativePositions {
		if !isFinite(v) || v < 0 || v > 1 {
			c.errorf(fmt.Sprintf("%s.relative_positions[%d]", name, i), "must be within [0,1], got %g", v)
		}
	}
	for i, v := range s.Diameters {
		if !isFinite(v) || v <= 0 {
			c.errorf(fmt.Sprintf("%s.diameters[%d]", name, i), "must be > 0, got %g", v)
		}
	}
	c.positive(name+".length", s.Length)

	if n < 0 {
		n = 0
	}
	return n, len(c.res.Errors) == before
}

func validateAdapter(c *collector, a *RawAdapter) {
	if a == nil {
		c.errorf("adapter_params", "required when add_adapter is true")
		return
	}
	in := c.positive("adapter_params.internal_diameter", a.InternalDiameter)
	out := c.positive("adapter_params.external_diameter", a.ExternalDiameter)
	c.positive("adapter_params.length", a.Length)
	if in && out && *a.InternalDiameter >= *a.ExternalDiameter {
		c.errorf("adapter_params.internal_diameter", "must be smaller than external_diameter (%g >= %g)",
			*a.InternalDiameter, *a.ExternalDiameter)
	}
}

func validateRounding(c *collector, r *RawRounding) {
	if r == nil {
		c.errorf("rounding", "required")
		return
	}
	c.nonNegative("rounding.external_intersection_rounding", r.ExternalIntersection)
	c.nonNegative("rounding.external_micro_rounding", r.ExternalMicro)
	c.nonNegative("rounding.internal_intersection_rounding", r.InternalIntersection)
	c.nonNegative("rounding.internal_micro_rounding", r.InternalMicro)
}

// sizeWarnings flags branches at least as wide as the branch they hang off.
// They still build, but the child swallows its parent's wall.
func sizeWarnings(c *collector, r *Raw) {
	trunk := *r.MainBranch.Diameter
	for i, d := range r.Primary.Diameters {
		if d >= trunk {
			c.warnf(fmt.Sprintf("primary_branch_params.diameters[%d]", i),
				"%g mm is not narrower than the trunk (%g mm)", d, trunk)
		}
	}
	if r.secondaryEnabled() && r.Secondary != nil {
		for j, d := range r.Secondary.Diameters {
			p := j / SecondariesPerPrimary
			if p >= len(r.Primary.Diameters) {
				break
			}
			if d >= r.Primary.Diameters[p] {
				c.warnf(fmt.Sprintf("secondary_branch_params.diameters[%d]", j),
					"%g mm is not narrower than primary %d (%g mm)", d, p, r.Primary.Diameters[p])
			}
		}
	}
	if r.adapterEnabled() && r.Adapter != nil && r.Adapter.InternalDiameter != nil &&
		*r.Adapter.InternalDiameter > trunk {
		c.warnf("adapter_params.internal_diameter",
			"adapter bore (%g mm) is wider than the trunk lumen (%g mm)", *r.Adapter.InternalDiameter, trunk)
	}
}
