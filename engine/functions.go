package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/brain/vector"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once
var registerErr error

// RegisterVectorFunctions registers vec_cosine, vec_cosine_distance and
// vec_l2 with the driver. Registration is process-wide and only affects
// connections opened after the first call.
func RegisterVectorFunctions(_ *sql.DB) error {
	registerOnce.Do(func() {
		for name, fn := range map[string]func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error){
			"vec_cosine":          pairFunc("vec_cosine", vector.CosineSimilarity),
			"vec_cosine_distance": pairFunc("vec_cosine_distance", cosineDistance),
			"vec_l2":              pairFunc("vec_l2", vector.L2Distance),
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(name, 2, fn); err != nil && !strings.Contains(err.Error(), "already") {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", vector.ErrDimensionMismatch, len(a), len(b))
	}
	return float64(vector.Cosine.Distance(a, vector.Magnitude(a), b, vector.Magnitude(b))), nil
}

// pairFunc adapts a two-vector function to a SQL scalar taking two BLOBs.
// A NULL argument yields NULL.
func pairFunc(name string, fn func(a, b []float32) (float64, error)) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(name, args[0])
		if err != nil {
			return nil, err
		}
		b, err := asEmbedding(name, args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		v, err := fn(a, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
}

func asEmbedding(name string, arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T for embedding; want BLOB", name, arg)
	}
}
