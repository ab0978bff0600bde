package tree

import (
	"errors"
	"fmt"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/kernel"
)

// Hollow cuts lumen out of shell. Nothing is rounded afterwards; the cut
// faces are open termini.
func Hollow(k kernel.Kernel, shell, lumen kernel.Solid) (kernel.Solid, error) {
	if shell == nil || lumen == nil {
		return nil, errors.New("tree: hollow: missing solid")
	}
	out, err := k.Difference(shell, lumen)
	if err != nil {
		return nil, fmt.Errorf("tree: hollow: %w", err)
	}
	return out, nil
}
