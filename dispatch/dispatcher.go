// Package dispatch collapses duplicate in-flight generation requests
// into one upstream call and mutes failing personality/context pairs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bytefold/recall/core"
	"github.com/bytefold/recall/generate"
)

var (
	// ErrBlackout means the (personality, context) pair is muted
	// after repeated transient failures. Callers surface this as a
	// "temporarily unavailable" message; upstream is not contacted.
	ErrBlackout = errors.New("dispatch: upstream temporarily unavailable")

	// ErrPendingExpired means a shared in-flight call was swept
	// before it completed.
	ErrPendingExpired = errors.New("dispatch: pending request expired")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dispatch: dispatcher is closed")
)

// Config holds dispatcher tuning. Zero values take defaults.
type Config struct {
	// FailureThreshold is consecutive transient failures before
	// blackout. Default: 3.
	FailureThreshold int

	// Cooldown is the blackout duration. Default: 60s.
	Cooldown time.Duration

	// MaxPendingAge bounds how long a pending entry may sit before
	// the sweeper drops it — defense against a dropped completion
	// leaking entries forever. Default: 2m.
	MaxPendingAge time.Duration
}

// pendingCall is one in-flight upstream call shared by every caller
// with the same fingerprint.
type pendingCall struct {
	done      chan struct{}
	result    *core.GenerationResult
	err       error
	createdAt time.Time

	// finishOnce guards against the sweeper and the owning call both
	// resolving the entry.
	finishOnce sync.Once
}

func (p *pendingCall) finish(result *core.GenerationResult, err error) {
	p.finishOnce.Do(func() {
		p.result = result
		p.err = err
		close(p.done)
	})
}

// Dispatcher owns the pending map and blackout state for one process.
// Constructed once and injected wherever generation calls are made; no
// ambient globals.
type Dispatcher struct {
	gen      generate.Generator
	blackout *Blackout
	maxAge   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingCall

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a dispatcher and starts its sweeper.
func New(gen generate.Generator, cfg Config) *Dispatcher {
	if cfg.MaxPendingAge <= 0 {
		cfg.MaxPendingAge = 2 * time.Minute
	}
	d := &Dispatcher{
		gen:      gen,
		blackout: NewBlackout(cfg.FailureThreshold, cfg.Cooldown),
		maxAge:   cfg.MaxPendingAge,
		now:      time.Now,
		pending:  make(map[string]*pendingCall),
		stop:     make(chan struct{}),
	}
	go d.sweeper()
	return d
}

// Do runs one deduplicated generation call.
//
// Order of checks: blackout first (a muted key never reaches upstream,
// not even as a piggyback on an in-flight call), then the pending map.
// Concurrent callers sharing a fingerprint wait for the first call's
// result; the entry is removed when the call completes either way.
func (d *Dispatcher) Do(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	key := BlackoutKey(req)
	if d.blackout.Active(key) {
		return nil, ErrBlackout
	}

	fp := Fingerprint(req)

	d.mu.Lock()
	if p, ok := d.pending[fp]; ok {
		d.mu.Unlock()
		log.Debug("collapsed duplicate generation request", "fingerprint", fp[:12])
		return d.wait(ctx, p)
	}

	p := &pendingCall{
		done:      make(chan struct{}),
		createdAt: d.now(),
	}
	d.pending[fp] = p
	d.mu.Unlock()

	result, err := d.gen.Generate(ctx, req)

	if err != nil && core.Transient(err) {
		d.blackout.RecordFailure(key)
	} else {
		d.blackout.Reset(key)
	}

	d.mu.Lock()
	// Only delete our own entry; the sweeper may have replaced it.
	if d.pending[fp] == p {
		delete(d.pending, fp)
	}
	d.mu.Unlock()

	p.finish(result, err)
	return result, err
}

// wait blocks until the shared call resolves or the caller gives up.
func (d *Dispatcher) wait(ctx context.Context, p *pendingCall) (*core.GenerationResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stop:
		return nil, ErrClosed
	}
}

// BlackoutActive reports whether the request's key is currently muted.
func (d *Dispatcher) BlackoutActive(req *core.GenerationRequest) bool {
	return d.blackout.Active(BlackoutKey(req))
}

// PendingCount returns the number of in-flight fingerprints.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close stops the sweeper. In-flight calls finish normally.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// sweeper drops pending entries older than MaxPendingAge. A completed
// call always removes its own entry; the sweep only matters when a
// completion was dropped, so a generous interval is fine.
func (d *Dispatcher) sweeper() {
	ticker := time.NewTicker(d.maxAge / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *Dispatcher) sweep() {
	cutoff := d.now().Add(-d.maxAge)

	d.mu.Lock()
	var expired []*pendingCall
	for fp, p := range d.pending {
		if p.createdAt.Before(cutoff) {
			delete(d.pending, fp)
			expired = append(expired, p)
			log.Warn("swept stale pending request", "fingerprint", fp[:12], "age", d.now().Sub(p.createdAt))
		}
	}
	d.mu.Unlock()

	for _, p := range expired {
		p.finish(nil, fmt.Errorf("%w (older than %s)", ErrPendingExpired, d.maxAge))
	}
}
