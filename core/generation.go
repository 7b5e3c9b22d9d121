package core

// GenerationRequest carries everything the upstream provider needs to
// produce a response, plus the identity fields used for request
// fingerprinting and blackout bookkeeping.
type GenerationRequest struct {
	// PersonalityID identifies which persona is responding.
	PersonalityID string

	// UserID is the requesting user, when known.
	UserID string

	// ContextID identifies where the conversation is happening
	// (channel, DM, session). Together with PersonalityID it forms
	// the blackout key.
	ContextID string

	// Message is the user's message content.
	Message string

	// SystemPrompt is the assembled prompt, including any retrieved
	// memory context. Not part of the fingerprint: two requests with
	// identical user content are duplicates even if prompt assembly
	// raced and produced slightly different context.
	SystemPrompt string

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int64
}

// GenerationResult is the upstream provider's successful output.
type GenerationResult struct {
	// Text is the generated response.
	Text string

	// Model records which model produced it.
	Model string

	// InputTokens and OutputTokens track provider token usage.
	InputTokens  int64
	OutputTokens int64
}
