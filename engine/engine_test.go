package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bytefold/recall/core"
	"github.com/bytefold/recall/dispatch"
	"github.com/bytefold/recall/embedding"
	"github.com/bytefold/recall/embedding/model/mock"
	"github.com/bytefold/recall/engine"
	"github.com/bytefold/recall/generate"
	"github.com/bytefold/recall/memory"
	"github.com/bytefold/recall/memory/store/chromem"
)

func newTestEngine(t *testing.T, gen generate.Generator, opts ...engine.Option) *engine.Engine {
	t.Helper()
	embedder, err := embedding.New(mock.New(), embedding.Config{})
	require.NoError(t, err)
	store, err := chromem.New()
	require.NoError(t, err)
	if gen == nil {
		gen = generate.Func(func(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
			return &core.GenerationResult{Text: "ok"}, nil
		})
	}
	e := engine.New(embedder, store, gen, opts...)
	t.Cleanup(e.Close)
	return e
}

func TestEngine_EmbeddingAndDedup(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	vec, err := e.GetEmbedding(ctx, "a first message")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimensions())
	require.True(t, e.Ready())

	dup, err := e.IsDuplicate(ctx, "some generated reply")
	require.NoError(t, err)
	require.False(t, dup)

	dup, err = e.IsDuplicate(ctx, "some generated reply")
	require.NoError(t, err)
	require.True(t, dup)
}

func TestEngine_MemoryRoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	record := memory.NewRecord("lilith", memory.ScopePersonal, "alice keeps bees on her roof")
	record.UserID = "alice"
	require.NoError(t, e.Remember(ctx, record))

	results, err := e.QueryMemories(ctx, memory.Query{
		Text:          "alice keeps bees on her roof",
		Scopes:        []memory.Scope{memory.ScopePersonal, memory.ScopeGlobal},
		PersonalityID: "lilith",
		UserID:        "alice",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, record.ID, results[0].Record.ID)
}

func TestEngine_ExclusionBoundary(t *testing.T) {
	e := newTestEngine(t, nil)
	require.Equal(t, int64(90_000), e.ResolveExclusionBoundary(100_000))

	custom := newTestEngine(t, nil, engine.WithExclusionBuffer(5_000))
	require.Equal(t, int64(95_000), custom.ResolveExclusionBoundary(100_000))
}

func TestEngine_DeduplicateRequestBlackout(t *testing.T) {
	var calls atomic.Int32
	gen := generate.Func(func(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
		calls.Add(1)
		return nil, &core.GenerationError{Kind: core.FailureTransient, StatusCode: 503, Err: context.DeadlineExceeded}
	})
	e := newTestEngine(t, gen, engine.WithDispatchConfig(dispatch.Config{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	}))

	for _, msg := range []string{"one", "two"} {
		_, err := e.DeduplicateRequest(context.Background(), &core.GenerationRequest{
			PersonalityID: "lilith",
			ContextID:     "chan-1",
			Message:       msg,
		})
		require.Error(t, err)
	}

	_, err := e.DeduplicateRequest(context.Background(), &core.GenerationRequest{
		PersonalityID: "lilith",
		ContextID:     "chan-1",
		Message:       "three",
	})
	require.ErrorIs(t, err, dispatch.ErrBlackout)
	require.Equal(t, int32(2), calls.Load())
}
