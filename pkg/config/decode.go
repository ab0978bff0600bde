package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Decode converts a normalized raw map into a Raw record. Keys the schema
// does not know are returned as warnings; type mismatches are errors.
func Decode(raw map[string]any) (*Raw, []ValidationError, error) {
	var (
		r  Raw
		md mapstructure.Metadata
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &r,
		Metadata: &md,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("config: decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			verrs := make(ValidationErrors, len(merr.Errors))
			for i, msg := range merr.Errors {
				verrs[i] = ValidationError{Message: msg, Severity: SeverityError}
			}
			return nil, nil, verrs
		}
		return nil, nil, fmt.Errorf("config: decode: %w", err)
	}

	unused := append([]string(nil), md.Unused...)
	sort.Strings(unused)
	warnings := make([]ValidationError, 0, len(unused))
	for _, k := range unused {
		warnings = append(warnings, ValidationError{
			Field:    k,
			Message:  "unknown key ignored",
			Severity: SeverityWarning,
		})
	}
	return &r, warnings, nil
}
