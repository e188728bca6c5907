package knowledge

import "context"

// DefaultCollection names the note collection.
const DefaultCollection = "my_notes"

// Store is an append-only collection of notes with nearest-neighbour search.
// Implementations are safe for concurrent use.
type Store interface {
	// Insert stores entry with its embedding and returns the generated id.
	Insert(ctx context.Context, entry Entry, embedding []float32) (string, error)

	// Query returns up to k neighbours of vec ordered by ascending distance.
	Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error)

	// Get returns a note by id or ErrNotFound.
	Get(ctx context.Context, id string) (*Note, error)

	// Count returns the number of stored notes.
	Count(ctx context.Context) (int, error)

	// Dimension is the embedding length the store accepts.
	Dimension() int

	Close() error
}
