package cover

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/viant/brain/index/bruteforce"
	"github.com/viant/brain/vector"
)

func randomVectors(n, dim int, seed int64) ([]string, [][]float32) {
	r := rand.New(rand.NewSource(seed))
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = fmt.Sprintf("doc-%d", i)
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		vecs[i] = v
	}
	return ids, vecs
}

// TestIndexMatchesBruteForce checks the VP-tree returns the exact neighbours
// a full scan returns, for both metrics, including items still pending a
// rebuild.
func TestIndexMatchesBruteForce(t *testing.T) {
	for _, metric := range []vector.Metric{vector.Cosine, vector.L2} {
		ids, vecs := randomVectors(500, 16, 7)
		tree := New(metric)
		if err := tree.Build(ids[:400], vecs[:400]); err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		for j := 400; j < len(ids); j++ {
			if err := tree.Add(ids[j], vecs[j]); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}
		flat := bruteforce.New(metric)
		if err := flat.Build(ids, vecs); err != nil {
			t.Fatalf("brute Build failed: %v", err)
		}
		_, queries := randomVectors(20, 16, 11)
		for qi, q := range queries {
			gotIDs, gotDists, err := tree.Query(q, 10)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			wantIDs, wantDists, _ := flat.Query(q, 10)
			if len(gotIDs) != len(wantIDs) {
				t.Fatalf("%s query %d: got %d results, want %d", metric, qi, len(gotIDs), len(wantIDs))
			}
			for n := range wantIDs {
				if math.Abs(gotDists[n]-wantDists[n]) > 1e-4 {
					t.Fatalf("%s query %d rank %d: dist %v (%s), want %v (%s)", metric, qi, n, gotDists[n], gotIDs[n], wantDists[n], wantIDs[n])
				}
			}
		}
	}
}

func TestIndexMarshalRoundTrip(t *testing.T) {
	ids, vecs := randomVectors(50, 8, 3)
	idx := New(vector.Cosine)
	if err := idx.Build(ids, vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if string(data[:len(Magic)]) != Magic {
		t.Fatalf("blob missing %s header", Magic)
	}
	restored := New(vector.Cosine)
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Len() != 50 {
		t.Fatalf("restored Len = %d, want 50", restored.Len())
	}
	got, _, err := restored.Query(vecs[17], 1)
	if err != nil || len(got) != 1 || got[0] != ids[17] {
		t.Fatalf("restored Query = %v, %v; want [%s]", got, err, ids[17])
	}
}
