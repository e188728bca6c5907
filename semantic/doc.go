// Package semantic implements knowledge.Store on a Qdrant collection over
// gRPC. Notes become points keyed by their UUID with the note fields in the
// payload.
package semantic
