package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/viant/brain/engine"
	"github.com/viant/brain/index"
	"github.com/viant/brain/vector"
)

// Options configures a SQLiteStore.
type Options struct {
	// Model identifies the embedding model; a store only accepts one model.
	Model string
	// Dimension is the embedding length; required.
	Dimension int
	// Metric defaults to vector.Cosine.
	Metric vector.Metric
	// Index defaults to index.Auto.
	Index index.Kind
	// Template identifies the canonical text layout that was embedded.
	Template string
	// Collection keys the persisted index snapshot; defaults to DefaultCollection.
	Collection string
	Logger     *slog.Logger
}

// SQLiteStore is a Store backed by SQLite with an in-memory kNN index.
//
// Inserts are serialized by writeMu, which covers id generation, the
// transaction and the index update. The index is only updated after commit,
// so a query never returns a note that Get cannot load.
//
// idx holds exactly the notes with rowid <= watermark. Notes committed by
// another handle on the same file are added on the next Query, Insert or
// Snapshot.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
	opts   Options
	logger *slog.Logger
	closed atomic.Bool

	writeMu   sync.Mutex
	mu        sync.RWMutex
	idx       index.Index
	watermark int64
}

// Open opens (or creates) the SQLite database at path and returns a store
// owning the connection.
func Open(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	db, err := engine.Open(path)
	if err != nil {
		return nil, Unavailable("open", err)
	}
	s, err := NewSQLiteStore(ctx, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStore prepares the schema in db, verifies the store metadata
// against opts and loads the index.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts Options) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("knowledge: db is nil")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("knowledge: invalid dimension %d", opts.Dimension)
	}
	if opts.Metric == "" {
		opts.Metric = vector.Cosine
	}
	if opts.Index == "" {
		opts.Index = index.Auto
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &SQLiteStore{db: db, opts: opts, logger: opts.Logger}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, Unavailable("schema", err)
	}
	if err := s.checkMeta(ctx); err != nil {
		return nil, err
	}
	if err := s.loadIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// checkMeta records model identity on first open and rejects a store opened
// with a different model, dimension, metric or text template.
func (s *SQLiteStore) checkMeta(ctx context.Context) error {
	want := map[string]string{
		"model":     s.opts.Model,
		"dimension": strconv.Itoa(s.opts.Dimension),
		"metric":    string(s.opts.Metric),
		"template":  s.opts.Template,
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return Unavailable("read meta", err)
	}
	got := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return Unavailable("read meta", err)
		}
		got[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Unavailable("read meta", err)
	}
	for _, key := range []string{"dimension", "model", "metric", "template"} {
		if v, ok := got[key]; ok && v != want[key] {
			return fmt.Errorf("%w: store was created with %s %q, opened with %q", ErrDimensionMismatch, key, v, want[key])
		}
	}
	for k, v := range want {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO store_meta(key, value) VALUES(?, ?)`, k, v); err != nil {
			return Unavailable("write meta", err)
		}
	}
	return nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, entry Entry, embedding []float32) (string, error) {
	if s.closed.Load() {
		return "", fmt.Errorf("%w: store is closed", ErrStoreUnavailable)
	}
	if err := vector.CheckDimension(embedding, s.opts.Dimension); err != nil {
		return "", err
	}
	blob, err := vector.EncodeEmbedding(embedding)
	if err != nil {
		return "", fmt.Errorf("knowledge: %w", err)
	}
	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("knowledge: encode tags: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", Unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `INSERT INTO notes(id, problem, solution, explanation, tags, content, embedding, model, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.Problem, entry.Solution, entry.Explanation, string(tagsJSON), entry.Content, blob, s.opts.Model, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", Unavailable("insert", err)
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return "", Unavailable("insert", err)
	}
	if err := tx.Commit(); err != nil {
		return "", Unavailable("commit", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rowid != s.watermark+1 {
		// another handle inserted in between, or an earlier add failed
		if err := s.catchUpLocked(ctx); err != nil {
			s.logger.Error("index catch-up failed", "id", id, "error", err)
		}
		return id, nil
	}
	if err := s.idx.Add(id, embedding); err != nil {
		// the row is durable; the next catch-up retries it
		s.logger.Error("index add failed", "id", id, "error", err)
		return id, nil
	}
	s.watermark = rowid
	return id, nil
}

// Query implements Store. k < 1 is treated as 1.
func (s *SQLiteStore) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: store is closed", ErrStoreUnavailable)
	}
	if err := vector.CheckDimension(vec, s.opts.Dimension); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k < 1 {
		k = 1
	}
	if err := s.catchUp(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("index catch-up failed", "collection", s.opts.Collection, "error", err)
	}
	s.mu.RLock()
	ids, dists, err := s.idx.Query(vec, k)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("knowledge: query: %w", err)
	}
	out := make([]Neighbor, len(ids))
	for i := range ids {
		out[i] = Neighbor{ID: ids[i], Distance: dists[i]}
	}
	return out, nil
}

// QueryExact ranks every stored note in SQL with the engine distance
// functions, bypassing the in-memory index. Results match Query, including
// insertion order on ties.
func (s *SQLiteStore) QueryExact(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: store is closed", ErrStoreUnavailable)
	}
	if err := vector.CheckDimension(vec, s.opts.Dimension); err != nil {
		return nil, err
	}
	if k < 1 {
		k = 1
	}
	blob, err := vector.EncodeEmbedding(vec)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}
	fn := "vec_cosine_distance"
	if s.opts.Metric == vector.L2 {
		fn = "vec_l2"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, `+fn+`(embedding, ?) AS d FROM notes ORDER BY d, rowid LIMIT ?`, blob, k)
	if err != nil {
		return nil, Unavailable("exact query", err)
	}
	defer rows.Close()
	out := []Neighbor{}
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, Unavailable("exact query", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("exact query", err)
	}
	return out, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Note, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: store is closed", ErrStoreUnavailable)
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, problem, solution, explanation, tags, content, embedding, model, created_at FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Unavailable("get", err)
	}
	return n, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, Unavailable("count", err)
	}
	return n, nil
}

func (s *SQLiteStore) Dimension() int        { return s.opts.Dimension }
func (s *SQLiteStore) Model() string         { return s.opts.Model }
func (s *SQLiteStore) Metric() vector.Metric { return s.opts.Metric }

// IndexKind reports the kind of the live index.
func (s *SQLiteStore) IndexKind() index.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return index.KindOf(s.idx)
}

// Close persists the index snapshot and, when the store opened the database
// itself, closes it. Later calls are no-ops.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.snapshot(context.Background())
	if s.ownsDB {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var (
		n       Note
		tags    string
		blob    []byte
		created string
	)
	if err := row.Scan(&n.ID, &n.Problem, &n.Solution, &n.Explanation, &tags, &n.Content, &blob, &n.Model, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", n.ID, err)
	}
	emb, err := vector.DecodeEmbedding(blob)
	if err != nil {
		return nil, err
	}
	n.Embedding = emb
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &n, nil
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
