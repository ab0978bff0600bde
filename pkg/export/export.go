// Package export writes finished meshes to disk. The format follows the
// output filename extension.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
)

// Format is a mesh file format, named by its extension.
type Format string

const (
	FormatSTL Format = ".stl"
	Format3MF Format = ".3mf"
)

// ErrUnsupportedFormat is returned for extensions no writer handles.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ErrEmptyMesh is returned when there is nothing to write.
var ErrEmptyMesh = errors.New("export: mesh has no triangles")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatSTL, Format3MF}
}

// FormatOf picks the format from path's extension, ignoring case.
func FormatOf(path string) (Format, error) {
	ext := Format(strings.ToLower(filepath.Ext(path)))
	for _, f := range Formats() {
		if ext == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of .stl, .3mf)", ErrUnsupportedFormat, filepath.Ext(path))
}

// Write saves m to path, creating the parent folder if needed.
func Write(path string, m *kernel.Mesh) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if m == nil || m.TriangleCount() == 0 {
		return ErrEmptyMesh
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	switch format {
	case Format3MF:
		err = Write3MF(path, m)
	default:
		err = WriteSTL(path, m)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}
