// Package cover provides a vantage-point tree index. Cosine distances are
// searched through the chord distance sqrt(2*d), which is a true metric on
// the unit sphere, so pruning stays exact. Items added after the last build
// are scanned linearly until enough accumulate to justify a rebuild.
package cover
