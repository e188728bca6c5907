package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama embeds text through Ollama's HTTP API.
type Ollama struct {
	baseURL string
	model   string
	dim     int
	limits  Limits
	client  *http.Client
}

// NewOllama creates an Ollama embedder expecting vectors of length dim.
func NewOllama(baseURL, model string, dim int, limits Limits) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dim,
		limits:  limits,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

func (o *Ollama) Dimension() int { return o.dim }
func (o *Ollama) Model() string  { return o.model }

// Load probes the server once so a missing model or a dimension mismatch
// surfaces at startup rather than on the first note.
func (o *Ollama) Load(ctx context.Context) (Embedder, error) {
	if _, err := o.Embed(ctx, "ping"); err != nil {
		return nil, err
	}
	return o, nil
}

// Embed implements Embedder.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := o.limits.Apply(text)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(ollamaEmbedReq{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: ollama unreachable: %w", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ollama: status %d", ErrEmbedding, resp.StatusCode)
	}
	var result ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: ollama decode: %v", ErrEmbedding, err)
	}
	if len(result.Embedding) != o.dim {
		return nil, fmt.Errorf("%w: ollama returned %d dimensions, want %d", ErrEmbedding, len(result.Embedding), o.dim)
	}
	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
