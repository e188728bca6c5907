// Package knowledge defines the append-only note store contract and its
// SQLite implementation.
//
// SQLiteStore keeps notes in a notes table and answers nearest-neighbour
// queries from an in-memory index. The index is persisted to the
// vector_storage table together with a rowid watermark, so reopening a store
// only decodes the notes inserted after the last snapshot.
package knowledge
