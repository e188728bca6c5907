// Package api exposes the retrieval engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/viant/brain/brain"
	"github.com/viant/brain/embedding"
	"github.com/viant/brain/knowledge"
)

// Notes is the engine surface the server needs.
type Notes interface {
	AddNote(ctx context.Context, in brain.NoteInput) (string, error)
	Search(ctx context.Context, query string, limit int) ([]brain.SearchResult, error)
	Get(ctx context.Context, id string) (*brain.SearchResult, error)
}

// Readiness reports whether the embedding model has loaded.
type Readiness interface {
	Ready() bool
}

// Options configures the server.
type Options struct {
	// MaxLimit caps the search limit; defaults to 50.
	MaxLimit   int
	CORSOrigin string
	RateLimit  float64
	Burst      int
	Logger     *slog.Logger
}

// Server routes HTTP requests to the engine.
type Server struct {
	notes  Notes
	ready  Readiness
	opts   Options
	logger *slog.Logger
}

// New returns a server. ready may be nil when the embedder needs no loading.
func New(notes Notes, ready Readiness, opts Options) *Server {
	if opts.MaxLimit < 1 {
		opts.MaxLimit = 50
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{notes: notes, ready: ready, opts: opts, logger: opts.Logger}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /add", s.handleAdd)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /notes/{id}", s.handleGet)

	return Chain(mux,
		Recover(s.logger),
		Logger(s.logger),
		CORS(s.opts.CORSOrigin),
		OTel("brain-api"),
		RateLimit(s.opts.RateLimit, s.opts.Burst),
	)
}

func (s *Server) isReady() bool {
	return s.ready == nil || s.ready.Ready()
}

// statusFor maps an engine error to a status code and a client-safe message.
func statusFor(err error, action string) (int, string) {
	switch {
	case errors.Is(err, embedding.ErrNotReady):
		return http.StatusServiceUnavailable, "service is starting"
	case errors.Is(err, embedding.ErrEmbedding):
		return http.StatusUnprocessableEntity, "failed to " + action
	case errors.Is(err, knowledge.ErrNotFound):
		return http.StatusNotFound, "note not found"
	case errors.Is(err, knowledge.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal server error"
}

func (s *Server) fail(w http.ResponseWriter, err error, action string) {
	status, msg := statusFor(err, action)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action+" failed", "status", status, "error", err)
	} else {
		s.logger.Warn(action+" failed", "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Detail: msg})
}
