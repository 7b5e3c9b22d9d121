// Package dedup flags near-duplicate text by comparing embeddings
// against a bounded window of recently seen content.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultCapacity is the reference sliding-window size.
const DefaultCapacity = 10

// Entry is one cached (hash, vector, timestamp) tuple.
type Entry struct {
	Hash      string
	Vector    []float32
	Timestamp time.Time
}

// Cache is a bounded insertion-order window of recent embeddings.
//
// Storing an existing hash updates its vector and timestamp in place
// without refreshing its eviction position: eviction is strictly
// first-inserted-first-out, not LRU. Not safe for concurrent use; the
// owner serializes access.
type Cache struct {
	capacity int
	order    []string
	entries  map[string]*Entry
	now      func() time.Time
}

// NewCache creates a cache. Capacity <= 0 takes DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*Entry, capacity),
		now:      time.Now,
	}
}

// Store upserts a vector under its content hash. On overflow the
// oldest-inserted entries are evicted first.
func (c *Cache) Store(hash string, vector []float32) {
	if existing, ok := c.entries[hash]; ok {
		existing.Vector = vector
		existing.Timestamp = c.now()
		return
	}

	c.entries[hash] = &Entry{Hash: hash, Vector: vector, Timestamp: c.now()}
	c.order = append(c.order, hash)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Contains reports whether the exact content hash is in the window.
func (c *Cache) Contains(hash string) bool {
	_, ok := c.entries[hash]
	return ok
}

// Entries returns the cached entries in insertion order.
func (c *Cache) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.order))
	for _, hash := range c.order {
		out = append(out, c.entries[hash])
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.order) }

// HashContent returns a deterministic fixed-width fingerprint of text.
// Used both for idempotent re-storage and as a cheap existence check
// before paying for an embedding.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity returns the dot product of two equal-length
// pre-normalized vectors. A length mismatch is a programmer error and
// panics rather than returning a recoverable error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("dedup: cosine similarity on mismatched dimensions: %d vs %d", len(a), len(b)))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
