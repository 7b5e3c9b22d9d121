// Package embedding runs text-to-vector inference in a worker goroutine
// isolated from the caller's request path.
//
// Model load and inference are CPU-bound; running them on a dedicated
// goroutine behind a channel keeps them from stalling latency-sensitive
// I/O handling. Callers exchange asynchronous messages with the worker,
// correlated by request ID, each with its own timeout. The model loads
// lazily on the first request and exactly once: a failed load is sticky
// for the engine's lifetime, and recovery means constructing a new
// engine.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/bytefold/recall/embedding/model"
)

// State is the engine's load state. Transitions are one-way:
// NotLoaded -> Loading -> Ready, or NotLoaded -> Loading -> Failed.
type State int32

const (
	StateNotLoaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not-loaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds engine tuning. Zero values take defaults.
type Config struct {
	// LoadTimeout bounds a call that has to pay for the cold model
	// load. Default: 30s.
	LoadTimeout time.Duration

	// EmbedTimeout bounds a call against a loaded model. Default: 5s.
	EmbedTimeout time.Duration

	// MemoEntries sizes the hash-keyed memo cache in front of the
	// worker. Default: 4096. Negative disables the memo.
	MemoEntries int64

	// QueueDepth is the worker channel buffer. Default: 64.
	QueueDepth int
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		LoadTimeout:  30 * time.Second,
		EmbedTimeout: 5 * time.Second,
		MemoEntries:  4096,
		QueueDepth:   64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	if c.MemoEntries == 0 {
		c.MemoEntries = d.MemoEntries
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = d.QueueDepth
	}
	return c
}

// request crosses from a caller into the worker. The reply channel is
// buffered so the worker can always complete a send and move on, even
// when the caller already timed out and walked away.
type request struct {
	id    string
	text  string
	reply chan response
}

type response struct {
	id     string
	vector []float32
	err    error
}

// Engine embeds text through a model running on an isolated worker
// goroutine. Safe for concurrent use.
type Engine struct {
	cfg      Config
	mdl      model.Model
	requests chan *request
	state    atomic.Int32
	memo     *ristretto.Cache
	done     chan struct{}
	closed   atomic.Bool
}

// New creates an engine and starts its worker. The model is not loaded
// until the first Embed call.
func New(mdl model.Model, cfg Config) (*Engine, error) {
	if mdl == nil {
		return nil, fmt.Errorf("embedding: model is required")
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		mdl:      mdl,
		requests: make(chan *request, cfg.QueueDepth),
		done:     make(chan struct{}),
	}
	if cfg.MemoEntries > 0 {
		memo, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cfg.MemoEntries * 10,
			MaxCost:     cfg.MemoEntries,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding: memo cache: %w", err)
		}
		e.memo = memo
	}

	go e.worker()
	return e, nil
}

// Embed converts text to a normalized fixed-dimension vector.
//
// Empty or whitespace-only text fails with ErrEmptyText without
// reaching the worker. While the model has never loaded, the call is
// given the longer LoadTimeout since it pays for the cold load; after
// that, EmbedTimeout applies. A timed-out call returns ErrTimeout and
// the worker's eventual result is discarded.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if State(e.state.Load()) == StateFailed {
		return nil, ErrLoadFailed
	}

	if e.memo != nil {
		if v, ok := e.memo.Get(text); ok {
			return cloneVector(v.([]float32)), nil
		}
	}

	timeout := e.cfg.EmbedTimeout
	if State(e.state.Load()) != StateReady {
		timeout = e.cfg.LoadTimeout
	}

	req := &request{
		id:    uuid.NewString(),
		text:  text,
		reply: make(chan response, 1),
	}

	select {
	case e.requests <- req:
	case <-e.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-req.reply:
		if resp.id != req.id {
			// Correlation IDs only mismatch if the worker loop is
			// broken; treat it like corrupted data.
			return nil, fmt.Errorf("embedding: correlation mismatch: sent %s, got %s", req.id, resp.id)
		}
		if resp.err != nil {
			return nil, resp.err
		}
		if e.memo != nil {
			e.memo.Set(text, resp.vector, 1)
		}
		return cloneVector(resp.vector), nil
	case <-timer.C:
		log.Warn("embedding request timed out", "id", req.id, "timeout", timeout)
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-e.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dimensions returns the model's declared vector size.
func (e *Engine) Dimensions() int { return e.mdl.Dimensions() }

// Ready reports whether the model is loaded and serving.
func (e *Engine) Ready() bool { return State(e.state.Load()) == StateReady }

// LoadState returns the current load state.
func (e *Engine) LoadState() State { return State(e.state.Load()) }

// Close stops the worker and releases model resources. In-flight
// callers receive ErrClosed.
func (e *Engine) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.done)
	}
}

// worker is the isolated execution context. It owns the model
// exclusively: load happens here on the first request, inference
// happens here, and nothing else ever touches the model.
func (e *Engine) worker() {
	defer func() {
		if err := e.mdl.Close(); err != nil {
			log.Warn("closing embedding model", "err", err)
		}
	}()

	for {
		select {
		case <-e.done:
			return
		case req := <-e.requests:
			req.reply <- e.handle(req)
		}
	}
}

func (e *Engine) handle(req *request) response {
	switch State(e.state.Load()) {
	case StateFailed:
		return response{id: req.id, err: ErrLoadFailed}
	case StateNotLoaded:
		e.state.Store(int32(StateLoading))
		log.Info("loading embedding model")
		start := time.Now()
		if err := e.mdl.Load(); err != nil {
			e.state.Store(int32(StateFailed))
			log.Error("embedding model load failed", "err", err)
			return response{id: req.id, err: fmt.Errorf("%w: %v", ErrLoadFailed, err)}
		}
		e.state.Store(int32(StateReady))
		log.Info("embedding model ready", "dimensions", e.mdl.Dimensions(), "took", time.Since(start))
	}

	vector, err := e.mdl.Embed(req.text)
	if err != nil {
		return response{id: req.id, err: fmt.Errorf("embedding: inference: %w", err)}
	}
	if len(vector) != e.mdl.Dimensions() {
		return response{id: req.id, err: fmt.Errorf("%w: got %d values, declared %d",
			ErrDimensionMismatch, len(vector), e.mdl.Dimensions())}
	}
	return response{id: req.id, vector: vector}
}

// cloneVector copies a vector so callers never alias cached storage.
func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
