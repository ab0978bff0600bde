package config

// Build converts a raw record into the absolute TreeConfig. It validates
// first and returns the blocking findings as a ValidationErrors error.
// Primary positions become absolute distances along the trunk; secondary
// positions become distances along their owning primary.
func Build(r *Raw) (*TreeConfig, ValidationResult, error) {
	res := Validate(r)
	if !res.OK() {
		return nil, res, res.Err()
	}

	trunkLen := *r.MainBranch.Length
	cfg := &TreeConfig{
		Trunk: BranchSpec{
			Parent:   TrunkParent,
			Diameter: *r.MainBranch.Diameter,
			Length:   trunkLen,
		},
		WallThickness:    *r.WallThickness,
		SecondaryEnabled: r.secondaryEnabled(),
		AdapterEnabled:   r.adapterEnabled(),
		Rounding: Rounding{
			ExternalMajor: *r.Rounding.ExternalIntersection,
			ExternalMicro: *r.Rounding.ExternalMicro,
			InternalMajor: *r.Rounding.InternalIntersection,
			InternalMicro: *r.Rounding.InternalMicro,
		},
		Output: Output{
			Folder:   *r.Output.Folder,
			Filename: *r.Output.Filename,
		},
	}

	p := r.Primary
	for i := range p.Angles {
		cfg.Primary = append(cfg.Primary, BranchSpec{
			Parent:           TrunkParent,
			AngleDeg:         p.Angles[i],
			RelativePosition: p.RelativePositions[i],
			Position:         p.RelativePositions[i] * trunkLen,
			Diameter:         p.Diameters[i],
			Length:           *p.Length,
		})
	}

	if cfg.SecondaryEnabled {
		s := r.Secondary
		n := SecondariesPerPrimary * len(cfg.Primary)
		for j := 0; j < n; j++ {
			owner := j / SecondariesPerPrimary
			cfg.Secondary = append(cfg.Secondary, BranchSpec{
				Parent:           owner,
				AngleDeg:         s.Angles[j],
				RelativePosition: s.RelativePositions[j],
				Position:         s.RelativePositions[j] * cfg.Primary[owner].Length,
				Diameter:         s.Diameters[j],
				Length:           *s.Length,
			})
		}
	}

	if cfg.AdapterEnabled {
		cfg.Adapter = AdapterSpec{
			InternalDiameter: *r.Adapter.InternalDiameter,
			ExternalDiameter: *r.Adapter.ExternalDiameter,
			Length:           *r.Adapter.Length,
		}
	}
	return cfg, res, nil
}

// FromMap runs Normalize, Decode, and Build over an already parsed record.
// Decode warnings are merged into the returned result.
func FromMap(raw map[string]any) (*TreeConfig, ValidationResult, error) {
	norm, err := Normalize(raw)
	if err != nil {
		return nil, ValidationResult{Errors: asValidationErrors(err)}, err
	}
	r, warnings, err := Decode(norm)
	if err != nil {
		return nil, ValidationResult{Errors: asValidationErrors(err)}, err
	}
	cfg, res, err := Build(r)
	res.Warnings = append(warnings, res.Warnings...)
	return cfg, res, err
}

func asValidationErrors(err error) ValidationErrors {
	if v, ok := err.(ValidationErrors); ok {
		return v
	}
	return ValidationErrors{{Message: err.Error(), Severity: SeverityError}}
}
