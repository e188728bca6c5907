package embedding

import (
	"fmt"
	"strings"
)

// Truncation decides what happens to text longer than the model accepts.
type Truncation string

const (
	// Reject fails with ErrEmbedding.
	Reject Truncation = "reject"
	// Truncate keeps the leading tokens.
	Truncate Truncation = "truncate"
)

// DefaultMaxTokens bounds input length when no limit is configured.
const DefaultMaxTokens = 512

// Limits bounds the input of an embedder. Tokens are whitespace-separated words.
type Limits struct {
	MaxTokens  int
	Truncation Truncation
}

// ParseTruncation resolves a configured policy; empty selects Reject.
func ParseTruncation(name string) (Truncation, error) {
	switch t := Truncation(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return Reject, nil
	case Reject, Truncate:
		return t, nil
	}
	return "", fmt.Errorf("embedding: unsupported truncation %q", name)
}

// Apply returns text unchanged when within limits, the leading MaxTokens
// words under Truncate, or ErrEmbedding under Reject.
func (l Limits) Apply(text string) (string, error) {
	limit := l.MaxTokens
	if limit <= 0 {
		limit = DefaultMaxTokens
	}
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text, nil
	}
	if l.Truncation == Truncate {
		return strings.Join(fields[:limit], " "), nil
	}
	return "", fmt.Errorf("%w: input has %d tokens, limit is %d", ErrEmbedding, len(fields), limit)
}
