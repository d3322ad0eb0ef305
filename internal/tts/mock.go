package tts

import (
	"context"
	"fmt"
	"sync"
)

// MockSynthesizer is an in-process synthesizer for tests and for
// running the service without provider credentials. Each call returns a
// small tagged buffer so stitch order is observable in tests.
type MockSynthesizer struct {
	SynthesizeFn func(ctx context.Context, input SynthesisInput) ([]byte, error)

	mu    sync.Mutex
	calls int
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, input SynthesisInput) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, input)
	}
	return []byte(fmt.Sprintf("[audio-%d]", n)), nil
}

// Calls reports how many synthesis requests were made.
func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
