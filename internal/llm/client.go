// Package llm wraps the generative text service: chat completions for
// script and name generation plus embeddings for similarity search.
package llm

import (
	"context"
	"fmt"
)

// CompletionRequest is one generation call. The core owns all structural
// validation of the returned text.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Client is the capability contract consumed by the pipeline.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderError carries enough detail for callers to distinguish "try
// again" from a content problem.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
