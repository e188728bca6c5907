package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Loader produces a ready embedder; it may take a long time.
type Loader func(ctx context.Context) (Embedder, error)

// Handle is an Embedder whose model loads in the background. Until loading
// completes every Embed call fails with ErrNotReady; a failed load keeps
// failing with ErrNotReady wrapping the cause.
type Handle struct {
	model  string
	dim    int
	logger *slog.Logger

	once sync.Once
	done chan struct{}
	mu   sync.RWMutex
	emb  Embedder
	err  error
}

// NewHandle declares the model and dimension the loaded embedder must have.
func NewHandle(model string, dim int, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{model: model, dim: dim, logger: logger, done: make(chan struct{})}
}

// Loaded wraps an embedder that needs no loading.
func Loaded(e Embedder) *Handle {
	h := NewHandle(e.Model(), e.Dimension(), nil)
	h.Load(context.Background(), func(context.Context) (Embedder, error) { return e, nil })
	<-h.done
	return h
}

// Load starts loader in the background. Only the first call has an effect.
func (h *Handle) Load(ctx context.Context, loader Loader) {
	h.once.Do(func() {
		go func() {
			start := time.Now()
			e, err := loader(ctx)
			if err == nil && e == nil {
				err = fmt.Errorf("loader returned no embedder for %s", h.model)
			}
			if err == nil && e.Dimension() != h.dim {
				err = fmt.Errorf("model %s has dimension %d, want %d", e.Model(), e.Dimension(), h.dim)
			}
			h.mu.Lock()
			h.emb, h.err = e, err
			h.mu.Unlock()
			close(h.done)
			if err != nil {
				h.logger.Error("embedder load failed", "model", h.model, "error", err)
				return
			}
			h.logger.Info("embedder ready", "model", h.model, "dimension", h.dim, "took", time.Since(start))
		}()
	})
}

// Ready reports whether the embedder loaded successfully.
func (h *Handle) Ready() bool {
	select {
	case <-h.done:
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.err == nil
	default:
		return false
	}
}

// Wait blocks until loading finishes and returns the load error, if any.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, h.err)
	}
	return nil
}

func (h *Handle) Dimension() int { return h.dim }
func (h *Handle) Model() string  { return h.model }

// Embed delegates to the loaded embedder.
func (h *Handle) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-h.done:
	default:
		return nil, ErrNotReady
	}
	h.mu.RLock()
	e, err := h.emb, h.err
	h.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return e.Embed(ctx, text)
}
