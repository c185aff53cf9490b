package llm

import (
	"context"
	"iter"
)

// DefaultFinishReason is reported when a backend does not say why it stopped.
const DefaultFinishReason = "stop"

// Request is the provider-agnostic generation payload.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Result is one completed generation.
type Result struct {
	Content      string `json:"content"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	TokensUsed   int    `json:"tokens_used"`
	FinishReason string `json:"finish_reason"`
}

// NewResult fills in the defaults for usage and finish reason.
func NewResult(provider, model, content string, tokens int, finish string) Result {
	if finish == "" {
		finish = DefaultFinishReason
	}
	return Result{
		Content:      content,
		Provider:     provider,
		Model:        model,
		TokensUsed:   tokens,
		FinishReason: finish,
	}
}

// Provider is an LLM backend capable of blocking and incremental generation.
type Provider interface {
	// Name is the provider key ("openai", "gemini", "ollama").
	Name() string
	// Model is the model requests are sent to.
	Model() string
	// Generate issues one blocking request.
	Generate(ctx context.Context, req Request) (Result, error)
	// Stream yields non-empty text fragments until the backend signals
	// completion. A failure is yielded once as the final element.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
	// Available is a cheap liveness check that never fails loudly.
	Available(ctx context.Context) bool
}
