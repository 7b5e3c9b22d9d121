package dedup

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bytefold/recall/embedding"
)

// DefaultThreshold is the reference similarity cutoff: high enough not
// to flag merely-related text, low enough to catch paraphrase-level
// repeats. Tuned empirically; treat as configuration, not an invariant.
const DefaultThreshold = 0.88

// Config holds deduplicator tuning. Zero values take defaults.
type Config struct {
	// Threshold is the cosine similarity above which content is a
	// duplicate. Default: 0.88.
	Threshold float64

	// Capacity is the sliding-window size. Default: 10.
	Capacity int
}

// Deduplicator flags text whose embedding is too similar to anything in
// the recent window. Policy is any-match: one sufficiently similar
// prior entry is enough. Safe for concurrent use.
type Deduplicator struct {
	engine    *embedding.Engine
	threshold float64

	mu    sync.Mutex
	cache *Cache
}

// New creates a deduplicator backed by the given embedding engine.
func New(engine *embedding.Engine, cfg Config) *Deduplicator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Deduplicator{
		engine:    engine,
		threshold: cfg.Threshold,
		cache:     NewCache(cfg.Capacity),
	}
}

// IsDuplicate reports whether text is an exact or near repeat of
// recently seen content. The text's embedding is recorded in the window
// either way, so later calls compare against it.
//
// An exact hash hit short-circuits before embedding. If the embedding
// engine is unavailable, the text is treated as novel; duplicate
// detection degrades to a no-op rather than failing the turn.
func (d *Deduplicator) IsDuplicate(ctx context.Context, text string) (bool, error) {
	hash := HashContent(text)

	d.mu.Lock()
	seen := d.cache.Contains(hash)
	d.mu.Unlock()
	if seen {
		return true, nil
	}

	vector, err := d.engine.Embed(ctx, text)
	if err != nil {
		if embedding.Unavailable(err) {
			log.Debug("dedup skipped, embedding engine unavailable", "err", err)
			return false, nil
		}
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	duplicate := false
	for _, entry := range d.cache.Entries() {
		if CosineSimilarity(vector, entry.Vector) > d.threshold {
			log.Debug("near-duplicate content detected", "hash", hash[:12], "against", entry.Hash[:12])
			duplicate = true
			break
		}
	}
	d.cache.Store(hash, vector)
	return duplicate, nil
}

// Threshold returns the configured similarity cutoff.
func (d *Deduplicator) Threshold() float64 { return d.threshold }
