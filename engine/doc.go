// Package engine opens modernc.org/sqlite connections for the knowledge
// store and registers the vector SQL functions (vec_cosine,
// vec_cosine_distance, vec_l2) so notes can be inspected with plain SQL.
package engine
