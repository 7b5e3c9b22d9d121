// Package engine is the facade the surrounding conversation service
// consumes: semantic memory retrieval, duplicate detection, and
// deduplicated upstream generation behind one injected instance.
package engine

import (
	"context"

	"github.com/bytefold/recall/core"
	"github.com/bytefold/recall/dedup"
	"github.com/bytefold/recall/dispatch"
	"github.com/bytefold/recall/embedding"
	"github.com/bytefold/recall/generate"
	"github.com/bytefold/recall/memory"
)

// Engine wires the embedding engine, similarity deduplicator, memory
// resolver, and request dispatcher together. One instance is
// constructed per process and passed to consumers; none of the
// underlying state is ambient.
type Engine struct {
	embedder   *embedding.Engine
	dedup      *dedup.Deduplicator
	resolver   *memory.Resolver
	dispatcher *dispatch.Dispatcher

	exclusionBufferMs int64
}

// Option configures the engine.
type Option func(*options)

type options struct {
	dedupConfig       dedup.Config
	resolverConfig    memory.ResolverConfig
	dispatchConfig    dispatch.Config
	exclusionBufferMs int64
}

// WithDedupConfig overrides similarity deduplication tuning.
func WithDedupConfig(cfg dedup.Config) Option {
	return func(o *options) { o.dedupConfig = cfg }
}

// WithResolverConfig overrides memory resolver tuning.
func WithResolverConfig(cfg memory.ResolverConfig) Option {
	return func(o *options) { o.resolverConfig = cfg }
}

// WithDispatchConfig overrides dispatcher and blackout tuning.
func WithDispatchConfig(cfg dispatch.Config) Option {
	return func(o *options) { o.dispatchConfig = cfg }
}

// WithExclusionBuffer overrides the short-term/long-term exclusion
// buffer in milliseconds.
func WithExclusionBuffer(bufferMs int64) Option {
	return func(o *options) { o.exclusionBufferMs = bufferMs }
}

// New creates an engine from its injected collaborators.
func New(embedder *embedding.Engine, store memory.Store, gen generate.Generator, opts ...Option) *Engine {
	o := &options{exclusionBufferMs: memory.DefaultExclusionBufferMs}
	for _, opt := range opts {
		opt(o)
	}

	return &Engine{
		embedder:          embedder,
		dedup:             dedup.New(embedder, o.dedupConfig),
		resolver:          memory.NewResolver(embedder, store, o.resolverConfig),
		dispatcher:        dispatch.New(gen, o.dispatchConfig),
		exclusionBufferMs: o.exclusionBufferMs,
	}
}

// GetEmbedding returns the normalized embedding of text. Callers check
// embedding.Unavailable on the error to distinguish "skip this turn"
// from real failures.
func (e *Engine) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.Embed(ctx, text)
}

// Dimensions returns the embedding vector size.
func (e *Engine) Dimensions() int { return e.embedder.Dimensions() }

// Ready reports whether the embedding model is loaded and serving.
func (e *Engine) Ready() bool { return e.embedder.Ready() }

// IsDuplicate reports whether text is a near repeat of recently
// generated content.
func (e *Engine) IsDuplicate(ctx context.Context, text string) (bool, error) {
	return e.dedup.IsDuplicate(ctx, text)
}

// QueryMemories runs a scope-filtered similarity search, ordered by
// relevance then recency.
func (e *Engine) QueryMemories(ctx context.Context, q memory.Query) ([]memory.ScoredRecord, error) {
	return e.resolver.Query(ctx, q)
}

// Remember embeds and stores a memory record.
func (e *Engine) Remember(ctx context.Context, record *memory.Record) error {
	return e.resolver.Remember(ctx, record)
}

// ResolveExclusionBoundary returns the timestamp upper bound that keeps
// long-term retrieval clear of the short-term history already in the
// prompt.
func (e *Engine) ResolveExclusionBoundary(oldestShortTermMs int64) int64 {
	return memory.ExclusionBoundary(oldestShortTermMs, e.exclusionBufferMs)
}

// DeduplicateRequest runs a generation call through the in-flight
// deduplicator and blackout gate. A dispatch.ErrBlackout result means
// "temporarily unavailable" — upstream was not contacted.
func (e *Engine) DeduplicateRequest(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	return e.dispatcher.Do(ctx, req)
}

// Close stops the embedding worker and the dispatcher sweeper.
func (e *Engine) Close() {
	e.dispatcher.Close()
	e.embedder.Close()
}
