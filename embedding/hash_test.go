package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/brain/vector"
)

func TestHashDeterministic(t *testing.T) {
	h := NewHash(64, Limits{})
	a, err := h.Embed(context.Background(), "How to reverse a list in Go?")
	require.NoError(t, err)
	b, err := h.Embed(context.Background(), "How to reverse a list in Go?")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, vector.Magnitude(a), 1e-5)
}

func TestHashSimilarTextIsCloser(t *testing.T) {
	h := NewHash(DefaultDimension, Limits{})
	ctx := context.Background()
	q, _ := h.Embed(ctx, "sort a slice of integers")
	near, _ := h.Embed(ctx, "how do I sort a slice of integers in Go")
	far, _ := h.Embed(ctx, "configure nginx reverse proxy timeout")
	dn := vector.Cosine.Distance(q, vector.Magnitude(q), near, vector.Magnitude(near))
	df := vector.Cosine.Distance(q, vector.Magnitude(q), far, vector.Magnitude(far))
	assert.Less(t, dn, df)
}

func TestHashEmptyText(t *testing.T) {
	v, err := NewHash(16, Limits{}).Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	assert.Equal(t, float32(0), vector.Magnitude(v))
}

func TestHashNonLatinText(t *testing.T) {
	v, err := NewHash(32, Limits{}).Embed(context.Background(), "Vấn đề: lỗi kết nối")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vector.Magnitude(v), 1e-5)
}

func TestHashConcurrent(t *testing.T) {
	h := NewHash(32, Limits{})
	want, err := h.Embed(context.Background(), "parallel safe")
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.Embed(context.Background(), "parallel safe")
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestHashCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHash(8, Limits{}).Embed(ctx, "text")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLimits(t *testing.T) {
	long := strings.Repeat("word ", 10)
	_, err := NewHash(8, Limits{MaxTokens: 5, Truncation: Reject}).Embed(context.Background(), long)
	assert.ErrorIs(t, err, ErrEmbedding)

	out, err := Limits{MaxTokens: 3, Truncation: Truncate}.Apply("a b c d e")
	require.NoError(t, err)
	assert.Equal(t, "a b c", out)

	out, err = Limits{MaxTokens: 3}.Apply("a b")
	require.NoError(t, err)
	assert.Equal(t, "a b", out)
}

func TestParseTruncation(t *testing.T) {
	tr, err := ParseTruncation("")
	require.NoError(t, err)
	assert.Equal(t, Reject, tr)
	_, err = ParseTruncation("drop")
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"go", "1", "22", "mux"}, Tokenize("Go 1.22: mux!"))
}
