// Package embedding turns text into fixed-size float32 vectors.
//
// Two embedders ship with the module: Hash, a local feature-hashing model
// with no I/O, and Ollama, which calls a local Ollama server. Both are
// deterministic for a fixed model and safe for concurrent use. Handle wraps
// a slow-loading embedder and rejects calls with ErrNotReady until it is
// loaded.
package embedding
