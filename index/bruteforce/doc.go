// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning all vectors. It defines the compact binary format shared with
// the cover index for persistence in the vector_storage table.
package bruteforce
