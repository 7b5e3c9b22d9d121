package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bytefold/recall/core"
)

func TestTransient(t *testing.T) {
	transient := &core.GenerationError{Kind: core.FailureTransient, StatusCode: 503, Err: errors.New("overloaded")}
	permanent := &core.GenerationError{Kind: core.FailurePermanent, StatusCode: 400, Err: errors.New("bad request")}

	require.True(t, core.Transient(transient))
	require.False(t, core.Transient(permanent))
	require.False(t, core.Transient(nil))

	// Wrapped classifications still resolve.
	require.True(t, core.Transient(fmt.Errorf("call failed: %w", transient)))
	require.False(t, core.Transient(fmt.Errorf("call failed: %w", permanent)))

	// Unclassified errors default to transient.
	require.True(t, core.Transient(errors.New("something odd")))
}

func TestGenerationErrorFormatting(t *testing.T) {
	err := &core.GenerationError{Kind: core.FailureTransient, StatusCode: 429, Err: errors.New("rate limited")}
	require.Contains(t, err.Error(), "transient")
	require.Contains(t, err.Error(), "429")
	require.ErrorContains(t, err, "rate limited")
}
