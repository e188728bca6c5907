package knowledge

import "time"

// Entry is the content of a note as supplied by the caller. Content is the
// canonical text the embedding was computed from.
type Entry struct {
	Problem     string
	Solution    string
	Explanation string
	Tags        []string
	Content     string
}

// Note is a stored entry.
type Note struct {
	ID string
	Entry
	Embedding []float32
	Model     string
	CreatedAt time.Time
}

// Neighbor is a query hit; lower Distance is closer.
type Neighbor struct {
	ID       string
	Distance float64
}
