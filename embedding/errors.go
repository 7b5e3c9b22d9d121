package embedding

import "errors"

var (
	// ErrEmptyText is returned for empty or whitespace-only input.
	// Rejected before anything crosses into the worker.
	ErrEmptyText = errors.New("embedding: text is empty")

	// ErrLoadFailed is returned once the model load has failed. The
	// failure is sticky: every later call gets this error immediately
	// for the life of the engine.
	ErrLoadFailed = errors.New("embedding: model load failed")

	// ErrTimeout is returned when the worker does not reply within
	// the configured deadline. The worker's in-flight computation is
	// not cancelled; its result is discarded.
	ErrTimeout = errors.New("embedding: request timed out")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("embedding: engine is closed")

	// ErrDimensionMismatch means the model returned a vector whose
	// length does not match its declared dimensions. This is data
	// corruption, not a normal failure path.
	ErrDimensionMismatch = errors.New("embedding: vector dimension mismatch")
)

// Unavailable reports whether err means the engine cannot serve
// embeddings right now. Callers treat this as "skip memory and dedup
// this turn" rather than a fatal condition.
func Unavailable(err error) bool {
	return errors.Is(err, ErrLoadFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrClosed)
}
