// Package index defines the kNN index abstraction used by the knowledge
// store: indexes are built from (id, embedding) pairs, grow by Add, answer
// queries with ascending distances and serialize themselves for the
// vector_storage table.
package index
