// Package tts wraps the speech synthesis service. The caller is
// responsible for keeping documents under the service's byte ceiling;
// this package converts one validated document into one audio buffer.
package tts

import (
	"context"
	"fmt"

	"github.com/mindsphere/mindsphere/internal/plan"
)

// SynthesisInput is one synthesis request. Text holds either a
// serialized markup document or plain text; the adapter detects which.
type SynthesisInput struct {
	Text string
	Kind plan.Kind
}

// Synthesizer is the capability contract for speech synthesis.
// Synthesis failure is fatal for the audio phase: it propagates, is not
// retried, and audio quality must not silently degrade.
type Synthesizer interface {
	Synthesize(ctx context.Context, input SynthesisInput) ([]byte, error)
}

// ProviderError mirrors the upstream failure with retryability info.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}
