package types

// CompletionRequest is one stateless prompt sent to a model.
type CompletionRequest struct {
	System string
	Prompt string
	Model  string
}

// Completion is the normalized provider response payload.
type Completion struct {
	Text  string
	Model string
	Usage *TokenUsage
}

// TokenUsage captures token accounting for one completion.
type TokenUsage struct {
	InputTokens     int64
	OutputTokens    int64
	TotalTokens     int64
	ReasoningTokens int64
	CacheReadTokens int64
}

// IsZero reports whether all token counters are unset/zero.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 &&
		u.OutputTokens == 0 &&
		u.TotalTokens == 0 &&
		u.ReasoningTokens == 0 &&
		u.CacheReadTokens == 0
}
