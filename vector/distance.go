package vector

import (
	"fmt"
	"strings"

	"github.com/viant/vec/search"
)

// Metric names a distance function. Lower distances always mean closer.
type Metric string

const (
	// Cosine is the cosine distance, 1 - cosine similarity, in [0, 2].
	Cosine Metric = "cosine"
	// L2 is the Euclidean distance.
	L2 Metric = "l2"
)

// ParseMetric resolves a configured metric name; empty selects Cosine.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cosine":
		return Cosine, nil
	case "l2", "euclidean":
		return L2, nil
	}
	return "", fmt.Errorf("vector: unsupported metric %q", name)
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// Distance computes the distance between a and b under m. The magnitudes
// short-circuit zero vectors, which are at cosine distance 1 from
// everything; they are ignored for L2.
func (m Metric) Distance(a []float32, am float32, b []float32, bm float32) float32 {
	if m == L2 {
		return search.Float32s(a).EuclideanDistance(b)
	}
	if am == 0 || bm == 0 {
		return 1
	}
	return search.Float32s(a).CosineDistance(b)
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: cosine similarity %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	am, bm := Magnitude(a), Magnitude(b)
	if am == 0 || bm == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return 1 - float64(Cosine.Distance(a, am, b, bm)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: L2 distance %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return float64(L2.Distance(a, 0, b, 0)), nil
}
