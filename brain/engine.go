package brain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viant/brain/embedding"
	"github.com/viant/brain/knowledge"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLimit is the number of results returned when the caller does not ask for more.
const DefaultLimit = 5

// Engine composes an embedder and a knowledge store.
type Engine struct {
	embedder embedding.Embedder
	store    knowledge.Store
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine; embedder and store must agree on the dimension.
func New(embedder embedding.Embedder, store knowledge.Store, opts ...Option) (*Engine, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("brain: embedder and store are required")
	}
	if embedder.Dimension() != store.Dimension() {
		return nil, fmt.Errorf("%w: embedder %s produces %d, store holds %d", knowledge.ErrDimensionMismatch, embedder.Model(), embedder.Dimension(), store.Dimension())
	}
	e := &Engine{
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/viant/brain/brain"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddNote embeds the canonical text of in and stores the note. Nothing is
// stored when embedding fails. Errors from the embedder and the store are
// returned unchanged.
func (e *Engine) AddNote(ctx context.Context, in NoteInput) (string, error) {
	ctx, span := e.tracer.Start(ctx, "brain.AddNote")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content := CanonicalText(in)
	vec, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return "", fail(span, err)
	}
	tags := append([]string{}, in.Tags...)
	id, err := e.store.Insert(ctx, knowledge.Entry{
		Problem:     in.Problem,
		Solution:    in.Solution,
		Explanation: in.Explanation,
		Tags:        tags,
		Content:     content,
	}, vec)
	if err != nil {
		return "", fail(span, err)
	}
	span.SetAttributes(attribute.String("note.id", id))
	e.logger.Info("note added", "id", id, "tags", len(tags))
	return id, nil
}

// Search returns up to limit notes closest to query, closest first. A limit
// below 1 is treated as 1. An empty store yields an empty, non-nil slice.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "brain.Search")
	defer span.End()
	if limit < 1 {
		e.logger.Debug("search limit clamped", "requested", limit)
		limit = 1
	}
	span.SetAttributes(attribute.Int("search.limit", limit))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fail(span, err)
	}
	neighbors, err := e.store.Query(ctx, vec, limit)
	if err != nil {
		return nil, fail(span, err)
	}
	results := make([]SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		note, err := e.store.Get(ctx, n.ID)
		if err != nil {
			return nil, fail(span, err)
		}
		results = append(results, project(note, n.Distance))
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

// Get returns a single note projected as a result with score 0.
func (e *Engine) Get(ctx context.Context, id string) (*SearchResult, error) {
	note, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r := project(note, 0)
	return &r, nil
}

// Count returns the number of stored notes.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

func project(n *knowledge.Note, distance float64) SearchResult {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return SearchResult{
		ID:      n.ID,
		Content: n.Content,
		Metadata: Metadata{
			Problem:     n.Problem,
			Solution:    n.Solution,
			Explanation: n.Explanation,
			Tags:        tags,
		},
		Score: distance,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
