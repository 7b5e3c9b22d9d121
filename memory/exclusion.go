package memory

// DefaultExclusionBufferMs is the reference gap subtracted from the
// oldest short-term timestamp. A boundary equal to the oldest raw
// message still permits an exact-timestamp collision; the buffer
// removes that edge at negligible cost in valid older memories.
const DefaultExclusionBufferMs = 10_000

// ExclusionBoundary computes the upper-bound timestamp for long-term
// retrieval given the oldest short-term message timestamp. Records at
// or after the boundary are excluded because the raw messages covering
// them are still in the prompt.
//
// Pure arithmetic: the result is exactly oldestShortTermMs - bufferMs
// and may be negative for small inputs; callers treat it as a plain
// upper bound.
func ExclusionBoundary(oldestShortTermMs, bufferMs int64) int64 {
	return oldestShortTermMs - bufferMs
}
