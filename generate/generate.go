// Package generate defines the upstream text-generation contract
// consumed by the request dispatcher.
package generate

import (
	"context"

	"github.com/bytefold/recall/core"
)

// Generator produces a response for a generation request. Failures
// should be returned as *core.GenerationError so the dispatcher can
// classify them; unclassified errors are treated as transient.
//
// Implementations: anthropic.Generator (production), test doubles.
type Generator interface {
	Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error)

func (f Func) Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	return f(ctx, req)
}
