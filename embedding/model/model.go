// Package model defines the embedding model contract consumed by the
// embedding engine's worker goroutine.
package model

// Model loads an embedding model once and converts text into
// fixed-dimension vectors. Implementations run entirely inside the
// engine's worker goroutine and are never called concurrently, so they
// do not need internal locking.
//
// Implementations:
//   - mock.Model: deterministic hash-seeded vectors (testing)
//   - onnx.Model: ONNX Runtime with all-MiniLM-L6-v2 (build tag "onnx")
type Model interface {
	// Load performs the expensive one-time model initialization.
	// Called lazily by the engine on the first embed request. A
	// returned error is terminal for the engine's lifetime.
	Load() error

	// Embed converts text to an embedding vector. The result must be
	// mean-pooled and L2-normalized so cosine similarity reduces to a
	// dot product. Only called after a successful Load.
	Embed(text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Close releases model resources.
	Close() error
}
