package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/viant/brain/brain"
	"github.com/viant/brain/config"
	"github.com/viant/brain/embedding"
	"github.com/viant/brain/engine"
	"github.com/viant/brain/index"
	"github.com/viant/brain/knowledge"
	"github.com/viant/brain/semantic"
	"github.com/viant/brain/vecsync"
	"github.com/viant/brain/vector"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB // nil unless the sqlite backend is used
	store  knowledge.Store
	sqlite *knowledge.SQLiteStore
	handle *embedding.Handle
	engine *brain.Engine
}

// openApp opens the configured store and starts loading the embedder.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	a.handle = newEmbedder(ctx, cfg.Embeddings, logger)
	eng, err := brain.New(a.handle, a.store, brain.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.engine = eng
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	sc, ec := a.cfg.Store, a.cfg.Embeddings
	metric, _ := vector.ParseMetric(sc.Metric)
	if sc.Backend == config.BackendQdrant {
		s, err := semantic.New(semantic.Options{
			Addr:       sc.QdrantAddr,
			Collection: sc.Collection,
			Model:      ec.Model,
			Dimension:  ec.Dimension,
			Metric:     metric,
		})
		if err != nil {
			return err
		}
		if err := s.EnsureCollection(ctx); err != nil {
			_ = s.Close()
			return err
		}
		a.store = s
		a.logger.Info("store opened", "backend", sc.Backend, "addr", sc.QdrantAddr, "collection", sc.Collection)
		return nil
	}

	if dir := filepath.Dir(sc.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := engine.Open(sc.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", knowledge.ErrStoreUnavailable, sc.Path, err)
	}
	kind, _ := index.ParseKind(sc.Index)
	s, err := knowledge.NewSQLiteStore(ctx, db, knowledge.Options{
		Model:      ec.Model,
		Dimension:  ec.Dimension,
		Metric:     metric,
		Index:      kind,
		Template:   brain.TemplateVersion,
		Collection: sc.Collection,
		Logger:     a.logger,
	})
	if err != nil {
		_ = db.Close()
		return err
	}
	a.db, a.sqlite, a.store = db, s, s
	a.logger.Info("store opened", "backend", sc.Backend, "path", sc.Path, "index", s.IndexKind())
	return nil
}

// newEmbedder returns a handle that is ready at once for the hash backend
// and loads in the background for Ollama.
func newEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) *embedding.Handle {
	if cfg.Backend == config.BackendOllama {
		h := embedding.NewHandle(cfg.Model, cfg.Dimension, logger)
		h.Load(ctx, embedding.NewOllama(cfg.OllamaURL, cfg.Model, cfg.Dimension, cfg.Limits()).Load)
		return h
	}
	return embedding.Loaded(embedding.NewHash(cfg.Dimension, cfg.Limits()))
}

// newRelay connects to NATS and returns a relay over the change log of db.
func newRelay(ctx context.Context, db *sql.DB, cfg config.EventsConfig, logger *slog.Logger) (*vecsync.Relay, *vecsync.NATSPublisher, error) {
	if db == nil {
		return nil, nil, errors.New("events require the sqlite store backend")
	}
	pub, err := vecsync.Connect(cfg.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
	}
	relay, err := vecsync.NewRelay(ctx, db, pub, vecsync.Config{
		Subject:   cfg.Subject,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.Interval,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}
	return relay, pub, nil
}

// Close persists the index and releases the store.
func (a *app) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.db != nil {
		err = errors.Join(err, a.db.Close())
	}
	return err
}
