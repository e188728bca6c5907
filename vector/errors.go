package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch reports a vector whose length differs from the
// dimension a store or index was created with.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// CheckDimension returns an error wrapping ErrDimensionMismatch when len(v) != dim.
func CheckDimension(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}
