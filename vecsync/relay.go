package vecsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const sqliteTimestamp = "2006-01-02 15:04:05"

// Publisher delivers a log entry to subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, entry LogEntry) error
}

// Relay tails the change log and publishes every entry once per subject.
// Progress is stored after each delivery, so a crash between publish and
// store re-delivers at most one entry.
type Relay struct {
	db     *sql.DB
	pub    Publisher
	cfg    Config
	logger *slog.Logger
}

// NewRelay creates the state table if needed and returns a relay.
func NewRelay(ctx context.Context, db *sql.DB, pub Publisher, cfg Config, logger *slog.Logger) (*Relay, error) {
	if db == nil {
		return nil, errors.New("vecsync: db is nil")
	}
	if pub == nil {
		return nil, errors.New("vecsync: publisher is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.init()
	if _, err := db.ExecContext(ctx, StateTableDDL(cfg.StateTable)); err != nil {
		return nil, fmt.Errorf("vecsync: create state table: %w", err)
	}
	return &Relay{db: db, pub: pub, cfg: cfg, logger: logger}, nil
}

// State returns the relay progress; a fresh relay starts at SCN 0.
func (r *Relay) State(ctx context.Context) (SyncState, error) {
	return ReadState(ctx, r.db, r.cfg.StateTable, r.cfg.Subject)
}

// ReadState loads the progress of subject from stateTable.
func ReadState(ctx context.Context, db *sql.DB, stateTable, subject string) (SyncState, error) {
	state := SyncState{Subject: subject}
	var updated string
	err := db.QueryRowContext(ctx, `SELECT last_scn, updated_at FROM `+sanitizeIdentifier(stateTable)+` WHERE subject = ?`, subject).Scan(&state.LastSCN, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return state, nil
}

// Sync publishes all pending entries and returns how many were delivered.
func (r *Relay) Sync(ctx context.Context) (int, error) {
	total := 0
	for {
		state, err := r.State(ctx)
		if err != nil {
			return total, err
		}
		entries, err := r.fetch(ctx, state.LastSCN)
		if err != nil {
			return total, err
		}
		for _, entry := range entries {
			subject := r.cfg.Subject + "." + entry.Op
			if err := r.pub.Publish(ctx, subject, entry); err != nil {
				return total, fmt.Errorf("vecsync: publish scn %d: %w", entry.SCN, err)
			}
			if err := r.advance(ctx, entry.SCN); err != nil {
				return total, err
			}
			total++
		}
		if len(entries) < r.cfg.BatchSize {
			return total, nil
		}
	}
}

// Run syncs every Interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		n, err := r.Sync(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("relay sync failed", "subject", r.cfg.Subject, "error", err)
		} else if n > 0 {
			r.logger.Debug("relay published", "subject", r.cfg.Subject, "entries", n)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Relay) fetch(ctx context.Context, after int64) ([]LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scn, source_table, op, document_id, payload, created_at FROM `+r.cfg.LogTable+` WHERE scn > ? ORDER BY scn LIMIT ?`, after, r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var payload, created string
		if err := rows.Scan(&e.SCN, &e.Table, &e.Op, &e.DocumentID, &payload, &created); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		e.CreatedAt, _ = time.Parse(sqliteTimestamp, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Relay) advance(ctx context.Context, scn int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO `+r.cfg.StateTable+`(subject, last_scn, updated_at) VALUES(?, ?, ?)
ON CONFLICT(subject) DO UPDATE SET last_scn = excluded.last_scn, updated_at = excluded.updated_at`,
		r.cfg.Subject, scn, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}
