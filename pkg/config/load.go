package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/engine"
	"gopkg.in/yaml.v3"
)

// Extensions accepted by LoadFile.
const (
	ExtYAML   = ".yaml"
	ExtYML    = ".yml"
	ExtJSON   = ".json"
	ExtScript = ".vtree"
)

// LoadFile reads a parameter file and returns the validated TreeConfig.
// The format is chosen by extension. The ValidationResult is returned even
// on failure so callers can print every finding.
func LoadFile(path string) (*TreeConfig, ValidationResult, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	return FromMap(raw)
}

// ReadFile parses a parameter file into its raw record without validating.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtYAML, ExtYML, ExtJSON:
		return ParseYAML(data)
	case ExtScript:
		return ParseScript(string(data))
	default:
		return nil, fmt.Errorf("config: %s: unsupported extension %q", path, ext)
	}
}

// ParseYAML parses YAML (or JSON, which is a subset) into a raw record.
func ParseYAML(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// ParseScript evaluates a .vtree script into a raw record.
func ParseScript(source string) (map[string]any, error) {
	raw, evalErrs, err := engine.NewEngine().Evaluate(source)
	if err != nil {
		return nil, fmt.Errorf("config: script: %w", err)
	}
	if len(evalErrs) > 0 {
		return nil, fmt.Errorf("config: script: %w", engine.EvalErrors(evalErrs))
	}
	return raw, nil
}
