package domain

import "context"

// Completer turns a prompt into free text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Completion is the provider's answer plus the tokens it cost.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage counts tokens for one or more provider calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}
