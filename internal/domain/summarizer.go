package domain

import "context"

// CompletionRequest is a single-shot prompt with a system instruction.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// LLMBackend is the prompt-in/text-out capability of an LLM provider.
type LLMBackend interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Healthy(ctx context.Context) error
}
