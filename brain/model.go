package brain

// NoteInput is a note as submitted by a user.
type NoteInput struct {
	Problem     string   `json:"problem"`
	Solution    string   `json:"solution"`
	Explanation string   `json:"explanation"`
	Tags        []string `json:"tags,omitempty"`
}

// Metadata carries the stored note fields of a result.
type Metadata struct {
	Problem     string   `json:"problem"`
	Solution    string   `json:"solution"`
	Explanation string   `json:"explanation"`
	Tags        []string `json:"tags"`
}

// SearchResult is a note ranked against a query. Score is a distance:
// lower is closer.
type SearchResult struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}
