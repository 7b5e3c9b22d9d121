package core

import (
	"errors"
	"fmt"
)

// FailureKind classifies an upstream generation failure. Only transient
// failures count toward blackout escalation; permanent failures are the
// caller's problem and are surfaced immediately.
type FailureKind int

const (
	// FailureTransient covers timeouts, rate limits, and 5xx-class
	// provider errors. Retrying later may succeed.
	FailureTransient FailureKind = iota

	// FailurePermanent covers malformed requests and other 4xx-class
	// errors. Retrying the same request will fail the same way.
	FailurePermanent
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// GenerationError is an upstream failure tagged with its classification.
type GenerationError struct {
	Kind       FailureKind
	StatusCode int // 0 when the failure never reached HTTP (e.g. timeout)
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Transient reports whether err is a GenerationError classified as
// transient. Errors without a classification are treated as transient:
// an unknown failure shape is more likely a provider hiccup than a
// malformed request.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind == FailureTransient
	}
	return true
}
