package bruteforce

import (
	"errors"
	"testing"

	"github.com/viant/brain/vector"
)

func TestIndexQueryOrdersByDistance(t *testing.T) {
	idx := New(vector.Cosine)
	if err := idx.Build([]string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ids, dists, err := idx.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("Query ids = %v, want [a c]", ids)
	}
	if dists[0] > dists[1] {
		t.Fatalf("Query distances not ascending: %v", dists)
	}
}

// TestIndexTiesKeepInsertionOrder verifies identical vectors come back in
// the order they were added.
func TestIndexTiesKeepInsertionOrder(t *testing.T) {
	idx := New(vector.Cosine)
	for _, id := range []string{"first", "second", "third"} {
		if err := idx.Add(id, []float32{0.5, 0.5}); err != nil {
			t.Fatalf("Add(%s) failed: %v", id, err)
		}
	}
	ids, _, err := idx.Query([]float32{1, 1}, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "first" || ids[1] != "second" || ids[2] != "third" {
		t.Fatalf("Query ids = %v, want insertion order", ids)
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	idx := New(vector.L2)
	if err := idx.Add("a", []float32{1, 2, 3}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := idx.Add("b", []float32{1, 2}); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("Add err = %v, want ErrDimensionMismatch", err)
	}
	if _, _, err := idx.Query([]float32{1}, 1); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("Query err = %v, want ErrDimensionMismatch", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
}

func TestIndexEmpty(t *testing.T) {
	ids, dists, err := New(vector.Cosine).Query([]float32{1, 0}, 5)
	if err != nil || len(ids) != 0 || len(dists) != 0 {
		t.Fatalf("Query on empty index = %v, %v, %v", ids, dists, err)
	}
}

func TestIndexMarshalRoundTrip(t *testing.T) {
	idx := New(vector.Cosine)
	if err := idx.Build([]string{"x", "yy"}, [][]float32{{1, 2, 3}, {-1, 0, 0.5}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	restored := New(vector.Cosine)
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", restored.Len())
	}
	ids, _, err := restored.Query([]float32{1, 2, 3}, 1)
	if err != nil || len(ids) != 1 || ids[0] != "x" {
		t.Fatalf("restored Query = %v, %v; want [x]", ids, err)
	}
	if err := restored.UnmarshalBinary(data[:len(data)-2]); err == nil {
		t.Fatalf("UnmarshalBinary on truncated data expected error")
	}
}
