package bruteforce

import (
	"fmt"
	"sort"

	"github.com/viant/brain/vector"
)

// Index is an exact brute-force vector index.
type Index struct {
	metric vector.Metric
	ids    []string
	vecs   [][]float32
	mags   []float32
	dim    int
}

// New returns an empty index scoring with metric.
func New(metric vector.Metric) *Index {
	return &Index{metric: metric}
}

// Build loads ids and vectors and precomputes magnitudes.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	i.ids, i.vecs, i.mags, i.dim = nil, nil, nil, 0
	if len(ids) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append(make([]string, 0, len(ids)), ids...)
	i.vecs = append(make([][]float32, 0, len(vectors)), vectors...)
	i.mags = make([]float32, len(vectors))
	for j := range vectors {
		i.mags[j] = vector.Magnitude(vectors[j])
	}
	i.dim = dim
	return nil
}

// Add appends one item; the first item fixes the dimension.
func (i *Index) Add(id string, vec []float32) error {
	if i.dim == 0 {
		i.dim = len(vec)
	}
	if err := vector.CheckDimension(vec, i.dim); err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, vec)
	i.mags = append(i.mags, vector.Magnitude(vec))
	return nil
}

// Len reports the number of indexed items.
func (i *Index) Len() int { return len(i.ids) }

// Query returns the top-k items by ascending distance.
func (i *Index) Query(query []float32, k int) ([]string, []float64, error) {
	if len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if err := vector.CheckDimension(query, i.dim); err != nil {
		return nil, nil, fmt.Errorf("bruteforce: query: %w", err)
	}
	qm := vector.Magnitude(query)
	type scored struct {
		idx  int
		dist float32
	}
	scoreds := make([]scored, len(i.vecs))
	for j := range i.vecs {
		scoreds[j] = scored{idx: j, dist: i.metric.Distance(query, qm, i.vecs[j], i.mags[j])}
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]string, k)
	outDists := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outDists[n] = float64(scoreds[n].dist)
	}
	return outIDs, outDists, nil
}

// MarshalBinary stores: dim(uint32), n(uint32), then for each item:
// idLen(uint32), id bytes, vec(float32[dim]).
func (i *Index) MarshalBinary() ([]byte, error) {
	return Encode(i.dim, i.ids, i.vecs), nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := Decode(data)
	if err != nil {
		return err
	}
	return i.Build(ids, vecs)
}
