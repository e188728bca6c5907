package engine

import (
	"math"
	"testing"

	"github.com/viant/brain/vector"
)

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Register globally before first connection so functions are available.
	if err := RegisterVectorFunctions(nil); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := RegisterVectorFunctions(db); err != nil {
		t.Fatalf("RegisterVectorFunctions (second call) failed: %v", err)
	}

	blob := func(v ...float32) []byte {
		b, err := vector.EncodeEmbedding(v)
		if err != nil {
			t.Fatalf("EncodeEmbedding failed: %v", err)
		}
		return b
	}
	a, b := blob(1, 0), blob(0, 1)

	var got float64
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, a, b).Scan(&got); err != nil {
		t.Fatalf("vec_cosine query failed: %v", err)
	}
	if math.Abs(got) > 1e-6 {
		t.Fatalf("vec_cosine(a,b) = %v, want 0", got)
	}
	if err := db.QueryRow(`SELECT vec_cosine_distance(?, ?)`, a, a).Scan(&got); err != nil {
		t.Fatalf("vec_cosine_distance query failed: %v", err)
	}
	if math.Abs(got) > 1e-6 {
		t.Fatalf("vec_cosine_distance(a,a) = %v, want 0", got)
	}
	if err := db.QueryRow(`SELECT vec_l2(?, ?)`, blob(0, 0), blob(3, 4)).Scan(&got); err != nil {
		t.Fatalf("vec_l2 query failed: %v", err)
	}
	if math.Abs(got-5) > 1e-6 {
		t.Fatalf("vec_l2 = %v, want 5", got)
	}

	var null *float64
	if err := db.QueryRow(`SELECT vec_l2(NULL, ?)`, a).Scan(&null); err != nil {
		t.Fatalf("vec_l2 NULL query failed: %v", err)
	}
	if null != nil {
		t.Fatalf("vec_l2(NULL, a) = %v, want NULL", *null)
	}
}
