package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashModel identifies vectors produced by Hash.
const HashModel = "hash-v1"

// DefaultDimension matches the footprint of common small sentence models.
const DefaultDimension = 384

// feature weights
const (
	wordWeight    = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// Hash is a deterministic feature-hashing embedder. Words, word bigrams and
// character trigrams are hashed into signed buckets and the result is L2
// normalised, so texts sharing vocabulary land close under cosine distance.
type Hash struct {
	dim    int
	limits Limits
}

// NewHash returns a hashing embedder with dim buckets; dim <= 0 selects DefaultDimension.
func NewHash(dim int, limits Limits) *Hash {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Hash{dim: dim, limits: limits}
}

func (h *Hash) Dimension() int { return h.dim }
func (h *Hash) Model() string  { return HashModel }

// Embed returns the normalised feature vector; text without tokens yields
// the zero vector.
func (h *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := h.limits.Apply(text)
	if err != nil {
		return nil, err
	}
	acc := make([]float64, h.dim)
	tokens := Tokenize(text)
	for i, tok := range tokens {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		h.add(acc, "w:"+tok, wordWeight)
		if i > 0 {
			h.add(acc, "b:"+tokens[i-1]+" "+tok, bigramWeight)
		}
		padded := []rune("#" + tok + "#")
		for j := 0; j+3 <= len(padded); j++ {
			h.add(acc, "c:"+string(padded[j:j+3]), trigramWeight)
		}
	}
	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, h.dim)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *Hash) add(acc []float64, feature string, weight float64) {
	sum := xxhash.Sum64String(feature)
	bucket := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// Tokenize lower-cases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
