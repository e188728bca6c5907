package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/brain/vector"
)

var (
	// ErrStoreUnavailable reports a failure of the storage medium.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound reports an unknown note id.
	ErrNotFound = errors.New("note not found")
	// ErrDimensionMismatch reports a vector whose length differs from the store dimension.
	ErrDimensionMismatch = vector.ErrDimensionMismatch
)

// Unavailable wraps a storage failure as ErrStoreUnavailable; context
// cancellation is returned unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
