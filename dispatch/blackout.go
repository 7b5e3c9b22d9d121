package dispatch

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultFailureThreshold is how many consecutive transient
	// failures trip a key into blackout.
	DefaultFailureThreshold = 3

	// DefaultCooldown is how long a tripped key stays muted.
	DefaultCooldown = 60 * time.Second
)

// Blackout mutes a (personality, context) key after repeated transient
// upstream failures. State machine per key: Normal -> Blackout on the
// Nth consecutive transient failure -> Normal once the cool-down
// elapses. Safe for concurrent use.
type Blackout struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures map[string]int
	until    map[string]time.Time
}

// NewBlackout creates a blackout tracker. Zero values take defaults.
func NewBlackout(threshold int, cooldown time.Duration) *Blackout {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Blackout{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		failures:  make(map[string]int),
		until:     make(map[string]time.Time),
	}
}

// Active reports whether the key is currently muted. Expired entries
// are dropped here, on first check past their deadline.
func (b *Blackout) Active(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.until[key]
	if !ok {
		return false
	}
	if b.now().After(until) {
		delete(b.until, key)
		delete(b.failures, key)
		return false
	}
	return true
}

// RecordFailure counts one transient failure against the key and
// reports whether this one tripped it into blackout.
func (b *Blackout) RecordFailure(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[key]++
	if b.failures[key] < b.threshold {
		return false
	}

	until := b.now().Add(b.cooldown)
	b.until[key] = until
	log.Warn("upstream blackout engaged", "key", key, "until", until)
	return true
}

// Reset clears the key's failure count. Called on success and on
// permanent failures, which say nothing about upstream health.
func (b *Blackout) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, key)
}
