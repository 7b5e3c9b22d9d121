// Package mock provides a deterministic in-process embedding model for
// tests and local development without model files.
package mock

import (
	"hash/fnv"
	"math"
	"time"
)

const defaultDimensions = 384 // matches all-MiniLM-L6-v2

// Model generates deterministic embeddings seeded by a text hash.
// The vectors carry no real semantics, but they are stable across runs
// and normalized, which is enough for exercising cache, dedup, and
// resolver plumbing.
type Model struct {
	dimensions int

	// LoadErr, when set, makes Load fail. Used to exercise the
	// engine's sticky-failure path.
	LoadErr error

	// LoadDelay and EmbedDelay simulate slow model operations.
	LoadDelay  time.Duration
	EmbedDelay time.Duration

	// Vectors overrides the generated embedding for specific texts,
	// letting tests control pairwise similarity exactly. Values are
	// returned as-is; callers are responsible for normalization.
	Vectors map[string][]float32

	// TruncateTo, when > 0, truncates every generated vector to that
	// length. Used to exercise the engine's dimension defense.
	TruncateTo int

	loads int
}

// New creates a mock model with the default 384 dimensions.
func New() *Model {
	return &Model{dimensions: defaultDimensions}
}

// NewWithDimensions creates a mock model with a custom vector size.
func NewWithDimensions(dims int) *Model {
	return &Model{dimensions: dims}
}

func (m *Model) Load() error {
	if m.LoadDelay > 0 {
		time.Sleep(m.LoadDelay)
	}
	m.loads++
	return m.LoadErr
}

// Loads reports how many times Load was called. The engine contract is
// exactly one load per lifetime.
func (m *Model) Loads() int { return m.loads }

func (m *Model) Embed(text string) ([]float32, error) {
	if m.EmbedDelay > 0 {
		time.Sleep(m.EmbedDelay)
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		// LCG keeps the output deterministic per input text.
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	embedding = normalize(embedding)

	if m.TruncateTo > 0 && m.TruncateTo < len(embedding) {
		embedding = embedding[:m.TruncateTo]
	}
	return embedding, nil
}

func (m *Model) Dimensions() int { return m.dimensions }

func (m *Model) Close() error { return nil }

// normalize converts the vector to unit length.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}
	return normalized
}
