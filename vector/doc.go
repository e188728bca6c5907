// Package vector holds the primitives shared by every storage backend:
//   - BLOB encoding of float32 embeddings (little-endian, no length prefix)
//   - distance metrics (cosine distance, L2) on top of github.com/viant/vec
//   - the dimension-mismatch error kind
package vector
