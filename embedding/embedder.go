package embedding

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding reports text the model could not encode.
	ErrEmbedding = errors.New("embedding failed")
	// ErrNotReady reports a call made before the model finished loading.
	ErrNotReady = errors.New("embedder not ready")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector of length Dimension() for text; "" is valid input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int

	// Model identifies the model; vectors from different models are not comparable.
	Model() string
}
