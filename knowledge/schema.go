package knowledge

import (
	"context"
	"database/sql"

	"github.com/viant/brain/vecsync"
)

const notesTable = "notes"

const notesSchema = `
CREATE TABLE IF NOT EXISTS notes (
    id          TEXT PRIMARY KEY,
    problem     TEXT NOT NULL,
    solution    TEXT NOT NULL,
    explanation TEXT NOT NULL,
    tags        TEXT NOT NULL DEFAULT '[]',
    content     TEXT NOT NULL,
    embedding   BLOB NOT NULL,
    model       TEXT NOT NULL,
    created_at  TEXT NOT NULL
);`

const metaSchema = `
CREATE TABLE IF NOT EXISTS store_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

const vectorStorageSchema = `
CREATE TABLE IF NOT EXISTS vector_storage (
    collection TEXT PRIMARY KEY,
    watermark  INTEGER NOT NULL,
    kind       TEXT NOT NULL,
    "index"    BLOB
);`

// EnsureSchema creates the notes, metadata, index snapshot and change-log
// tables together with the append-only and change-log triggers. The change
// log carries the note fields but not the embedding.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{notesSchema, metaSchema, vectorStorageSchema, vecsync.LogTableDDL(vecsync.DefaultLogTable)}
	stmts = append(stmts, vecsync.SQLiteAppendOnlyTriggers(notesTable)...)
	// recreated so files from older builds drop the embedding from the payload
	stmts = append(stmts, `DROP TRIGGER IF EXISTS notes_ai`)
	stmts = append(stmts, vecsync.SQLiteInsertLogTrigger(notesTable, vecsync.DefaultLogTable, "id", []vecsync.Column{
		{Name: "id"},
		{Name: "problem"},
		{Name: "solution"},
		{Name: "explanation"},
		{Name: "tags", Kind: vecsync.JSON},
		{Name: "content"},
		{Name: "model"},
		{Name: "created_at"},
	}))
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
