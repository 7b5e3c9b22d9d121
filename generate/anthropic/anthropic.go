// Package anthropic backs the Generator contract with the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/bytefold/recall/core"
	"github.com/bytefold/recall/generate"
)

const defaultMaxTokens = 1024

// Config configures the generator.
type Config struct {
	// Model selects the model. Required.
	Model string

	// MaxTokens is the default response cap when a request does not
	// set one. Default: 1024.
	MaxTokens int64
}

// Generator calls the Anthropic Messages API and classifies its
// failures for blackout escalation.
type Generator struct {
	client *anthropic.Client
	cfg    Config
}

// New creates a generator around an existing client.
func New(client *anthropic.Client, cfg Config) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("anthropic: client is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Generator{client: client, cfg: cfg}, nil
}

// Generate sends one user message with the request's system prompt and
// returns the text response.
func (g *Generator) Generate(ctx context.Context, req *core.GenerationRequest) (*core.GenerationResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &core.GenerationResult{
		Text:         text,
		Model:        string(resp.Model),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// classify maps an API error to a tagged GenerationError. Timeouts,
// rate limits, and server-side errors are transient; the rest of the
// 4xx range is permanent.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		kind := core.FailurePermanent
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode >= 500:
			kind = core.FailureTransient
		}
		return &core.GenerationError{Kind: kind, StatusCode: apiErr.StatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &core.GenerationError{Kind: core.FailureTransient, Err: err}
	}

	// Network-level failures without a status carry no proof the
	// request was malformed; let them count as transient.
	return &core.GenerationError{Kind: core.FailureTransient, Err: err}
}

var _ generate.Generator = (*Generator)(nil)
