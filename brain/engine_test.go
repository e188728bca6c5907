package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/brain/embedding"
	"github.com/viant/brain/engine"
	"github.com/viant/brain/knowledge"
)

const testDim = 64

func newStore(t *testing.T, dim int) *knowledge.SQLiteStore {
	t.Helper()
	db, err := engine.Open(engine.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := knowledge.NewSQLiteStore(context.Background(), db, knowledge.Options{Model: embedding.HashModel, Dimension: dim})
	require.NoError(t, err)
	return s
}

func newEngine(t *testing.T) (*Engine, *knowledge.SQLiteStore) {
	t.Helper()
	store := newStore(t, testDim)
	e, err := New(embedding.NewHash(testDim, embedding.Limits{}), store)
	require.NoError(t, err)
	return e, store
}

// failingEmbedder rejects every input.
type failingEmbedder struct{ dim int }

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: model crashed", embedding.ErrEmbedding)
}
func (f failingEmbedder) Dimension() int { return f.dim }
func (f failingEmbedder) Model() string  { return "failing" }

func TestCanonicalText(t *testing.T) {
	got := CanonicalText(NoteInput{Problem: "p", Solution: "s", Explanation: "e"})
	assert.Equal(t, "Problem: p\nSolution: s\nDetailed explanation: e", got)
	assert.Equal(t, "Problem: \nSolution: \nDetailed explanation: ", CanonicalText(NoteInput{}))
}

func TestAddNoteSearchRoundTrip(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	in := NoteInput{Problem: "nil map write panics", Solution: "make the map first", Explanation: "maps must be initialised", Tags: []string{"go", "maps"}}
	id, err := e.AddNote(ctx, in)
	require.NoError(t, err)
	_, err = e.AddNote(ctx, NoteInput{Problem: "docker image too large", Solution: "multi-stage build", Explanation: "copy only the binary"})
	require.NoError(t, err)

	results, err := e.Search(ctx, CanonicalText(in), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, CanonicalText(in), r.Content)
	assert.Equal(t, Metadata{Problem: in.Problem, Solution: in.Solution, Explanation: in.Explanation, Tags: []string{"go", "maps"}}, r.Metadata)
	assert.InDelta(t, 0, r.Score, 1e-5)
}

func TestSearchEmptyStore(t *testing.T) {
	e, _ := newEngine(t)
	results, err := e.Search(context.Background(), "anything", DefaultLimit)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

// TestSearchCapsAtStoreSize verifies a limit larger than the store returns
// every note with non-decreasing scores.
func TestSearchCapsAtStoreSize(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := e.AddNote(ctx, NoteInput{Problem: fmt.Sprintf("problem %d", i), Solution: "s", Explanation: "e"})
		require.NoError(t, err)
	}
	results, err := e.Search(ctx, "problem", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchClampsLimit(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := e.AddNote(ctx, NoteInput{Problem: fmt.Sprint(i)})
		require.NoError(t, err)
	}
	for _, limit := range []int{0, -3} {
		results, err := e.Search(ctx, "0", limit)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	}
}

func TestSearchDeterministic(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	for _, p := range []string{"tls handshake", "tls certificate", "http timeout"} {
		_, err := e.AddNote(ctx, NoteInput{Problem: p})
		require.NoError(t, err)
	}
	first, err := e.Search(ctx, "tls", 3)
	require.NoError(t, err)
	second, err := e.Search(ctx, "tls", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAddNoteEmbeddingFailureStoresNothing(t *testing.T) {
	store := newStore(t, 8)
	e, err := New(failingEmbedder{dim: 8}, store)
	require.NoError(t, err)
	_, err = e.AddNote(context.Background(), NoteInput{Problem: "p"})
	assert.ErrorIs(t, err, embedding.ErrEmbedding)
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.Search(context.Background(), "p", 5)
	assert.ErrorIs(t, err, embedding.ErrEmbedding)
}

func TestNotReadyPassesThrough(t *testing.T) {
	h := embedding.NewHandle(embedding.HashModel, testDim, nil)
	e, err := New(h, newStore(t, testDim))
	require.NoError(t, err)
	_, err = e.AddNote(context.Background(), NoteInput{Problem: "p"})
	assert.ErrorIs(t, err, embedding.ErrNotReady)
	_, err = e.Search(context.Background(), "p", 5)
	assert.ErrorIs(t, err, embedding.ErrNotReady)
}

func TestNewDimensionMismatch(t *testing.T) {
	_, err := New(embedding.NewHash(16, embedding.Limits{}), newStore(t, 8))
	assert.True(t, errors.Is(err, knowledge.ErrDimensionMismatch))
}

func TestGet(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	id, err := e.AddNote(ctx, NoteInput{Problem: "p", Tags: []string{"x"}})
	require.NoError(t, err)
	r, err := e.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, r.Metadata.Tags)
	_, err = e.Get(ctx, "unknown")
	assert.ErrorIs(t, err, knowledge.ErrNotFound)
}

func TestConcurrentAddNote(t *testing.T) {
	e, _ := newEngine(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := map[string]bool{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := e.AddNote(context.Background(), NoteInput{Problem: fmt.Sprint(i)})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Len(t, ids, 16)
	n, err := e.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestCancelledContext(t *testing.T) {
	e, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.AddNote(ctx, NoteInput{Problem: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Search(ctx, "p", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
