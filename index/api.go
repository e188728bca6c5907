package index

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/viant/brain/index/bruteforce"
	"github.com/viant/brain/index/cover"
	"github.com/viant/brain/vector"
)

// Index defines a vector index with basic lifecycle methods. Implementations
// are not safe for concurrent mutation; callers serialize Add/Build against
// Query.
type Index interface {
	// Build replaces the content of the index with the given ids and vectors.
	// ids and vectors must have the same length and a common dimension.
	Build(ids []string, vectors [][]float32) error

	// Add appends a single item.
	Add(id string, vec []float32) error

	// Query returns up to k matches as parallel slices of ids and distances
	// ordered by ascending distance; equal distances keep insertion order.
	// k <= 0 returns every item.
	Query(query []float32, k int) (ids []string, distances []float64, err error)

	// Len reports the number of indexed items.
	Len() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// Kind selects an index implementation.
type Kind string

const (
	Auto  Kind = "auto"
	Brute Kind = "brute"
	Cover Kind = "cover"
)

const (
	autoCoverMinDocs            = 4000
	autoCoverMinDim             = 64
	autoCoverMinDensity float64 = 16
)

// ParseKind resolves a configured index kind; empty selects Auto.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case "":
		return Auto, nil
	case Auto, Brute, Cover:
		return k, nil
	}
	return "", fmt.Errorf("index: unsupported kind %q", name)
}

// Resolve maps Auto to a concrete kind for docCount items of dimension dim.
// A VP-tree only pays off on large, dense collections.
func Resolve(kind Kind, docCount, dim int) Kind {
	switch kind {
	case Brute, Cover:
		return kind
	}
	if docCount >= autoCoverMinDocs && dim >= autoCoverMinDim {
		if float64(docCount)/float64(dim) >= autoCoverMinDensity {
			return Cover
		}
	}
	return Brute
}

// New returns an empty index of the given kind; Auto yields a brute-force index.
func New(kind Kind, metric vector.Metric) Index {
	if kind == Cover {
		return cover.New(metric)
	}
	return bruteforce.New(metric)
}

// Unmarshal restores an index persisted by MarshalBinary, detecting the
// implementation from the blob header.
func Unmarshal(data []byte, metric vector.Metric) (Index, error) {
	var idx Index = bruteforce.New(metric)
	if bytes.HasPrefix(data, []byte(cover.Magic)) {
		idx = cover.New(metric)
	}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}

// KindOf reports the kind of a concrete index.
func KindOf(idx Index) Kind {
	if _, ok := idx.(*cover.Index); ok {
		return Cover
	}
	return Brute
}
