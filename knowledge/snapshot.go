package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/viant/brain/index"
	"github.com/viant/brain/vector"
)

// loadIndex restores the persisted snapshot and catches up on notes inserted
// after its watermark. A missing or unreadable snapshot triggers a full build.
func (s *SQLiteStore) loadIndex(ctx context.Context) error {
	start := time.Now()
	idx, watermark, err := s.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	caughtUp := 0
	if idx == nil {
		n, err := s.Count(ctx)
		if err != nil {
			return err
		}
		idx = index.New(index.Resolve(s.opts.Index, n, s.opts.Dimension), s.opts.Metric)
		watermark = 0
	}
	watermark, caughtUp, err = s.appendRows(ctx, idx, watermark)
	if err != nil {
		return err
	}
	var want int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notes WHERE rowid <= ?`, watermark).Scan(&want); err != nil {
		return Unavailable("count notes", err)
	}
	if idx.Len() != want {
		s.logger.Warn("index snapshot out of step with notes, rebuilding",
			"collection", s.opts.Collection, "indexed", idx.Len(), "notes", want)
		idx = index.New(index.Resolve(s.opts.Index, want, s.opts.Dimension), s.opts.Metric)
		if watermark, caughtUp, err = s.appendRows(ctx, idx, 0); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.idx, s.watermark = idx, watermark
	s.mu.Unlock()
	s.logger.Info("index loaded",
		"collection", s.opts.Collection,
		"kind", index.KindOf(idx),
		"notes", idx.Len(),
		"caught_up", caughtUp,
		"took", time.Since(start),
	)
	return nil
}

func (s *SQLiteStore) loadSnapshot(ctx context.Context) (index.Index, int64, error) {
	var (
		watermark int64
		kind      string
		blob      []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT watermark, kind, "index" FROM vector_storage WHERE collection = ?`, s.opts.Collection).Scan(&watermark, &kind, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, Unavailable("load snapshot", err)
	}
	if len(blob) == 0 {
		return nil, 0, nil
	}
	idx, err := index.Unmarshal(blob, s.opts.Metric)
	if err != nil {
		s.logger.Warn("index snapshot unreadable, rebuilding", "collection", s.opts.Collection, "error", err)
		return nil, 0, nil
	}
	if want := s.opts.Index; want != index.Auto && index.KindOf(idx) != want {
		s.logger.Info("index kind changed, rebuilding", "from", kind, "to", want)
		return nil, 0, nil
	}
	return idx, watermark, nil
}

// appendRows adds notes with rowid > after to idx in rowid order.
func (s *SQLiteStore) appendRows(ctx context.Context, idx index.Index, after int64) (int64, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rowid, id, embedding FROM notes WHERE rowid > ? ORDER BY rowid`, after)
	if err != nil {
		return after, 0, Unavailable("scan notes", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var (
			rowid int64
			id    string
			blob  []byte
		)
		if err := rows.Scan(&rowid, &id, &blob); err != nil {
			return after, count, Unavailable("scan notes", err)
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return after, count, Unavailable("decode "+id, err)
		}
		if err := idx.Add(id, vec); err != nil {
			return after, count, err
		}
		after = rowid
		count++
	}
	if err := rows.Err(); err != nil {
		return after, count, Unavailable("scan notes", err)
	}
	return after, count, nil
}

// catchUp adds notes with rowid above the watermark to the live index.
func (s *SQLiteStore) catchUp(ctx context.Context) error {
	var last int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(rowid), 0) FROM notes`).Scan(&last); err != nil {
		return Unavailable("catch up", err)
	}
	s.mu.RLock()
	current := s.watermark
	s.mu.RUnlock()
	if last <= current {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catchUpLocked(ctx)
}

// catchUpLocked requires s.mu held for writing. On error the watermark stops
// at the last note added, so the failed one is retried.
func (s *SQLiteStore) catchUpLocked(ctx context.Context) error {
	watermark, n, err := s.appendRows(ctx, s.idx, s.watermark)
	s.watermark = watermark
	if n > 0 {
		s.logger.Debug("index caught up", "collection", s.opts.Collection, "notes", n, "watermark", watermark)
	}
	return err
}

// Snapshot persists the live index with its watermark.
func (s *SQLiteStore) Snapshot(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreUnavailable
	}
	return s.snapshot(ctx)
}

func (s *SQLiteStore) snapshot(ctx context.Context) error {
	if err := s.catchUp(ctx); err != nil {
		s.logger.Warn("index catch-up failed before snapshot", "collection", s.opts.Collection, "error", err)
	}
	s.mu.RLock()
	data, err := s.idx.MarshalBinary()
	watermark := s.watermark
	kind := index.KindOf(s.idx)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO vector_storage(collection, watermark, kind, "index") VALUES(?, ?, ?, ?)`,
		s.opts.Collection, watermark, string(kind), data)
	return Unavailable("save snapshot", err)
}

// Reindex rebuilds the index from the notes table, choosing the index kind
// for the current collection size, and persists it. Inserts wait until the
// rebuild finishes; queries keep using the previous index meanwhile.
func (s *SQLiteStore) Reindex(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreUnavailable
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	idx := index.New(index.Resolve(s.opts.Index, n, s.opts.Dimension), s.opts.Metric)
	watermark, count, err := s.appendRows(ctx, idx, 0)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.idx, s.watermark = idx, watermark
	s.mu.Unlock()
	if err := s.snapshot(ctx); err != nil {
		return count, err
	}
	s.logger.Info("reindexed", "collection", s.opts.Collection, "kind", index.KindOf(idx), "notes", count)
	return count, nil
}
