package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a deterministic fallback used when no API key is
// configured, and the stub of choice in tests.
type MockClient struct {
	mu sync.Mutex

	// CompleteFn overrides the canned completion when set.
	CompleteFn func(ctx context.Context, req CompletionRequest) (string, error)
	// EmbedFn overrides the canned embedding when set.
	EmbedFn func(ctx context.Context, text string) ([]float32, error)

	completions int
	embeddings  int
}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.mu.Lock()
	m.completions++
	fn := m.CompleteFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	// Short name requests get a plain line; everything else gets a small
	// valid markup document.
	if req.MaxTokens > 0 && req.MaxTokens <= 64 {
		return "Quiet Evening Unwinding", nil
	}
	return `<speak>
  <prosody rate="x-slow">
    <p>
      <s>Hi, this is a simulated narration.</s>
      <break time="3s"/>
      <s>Settle in and let the day soften around you.</s>
    </p>
  </prosody>
</speak>`, nil
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embeddings++
	fn := m.EmbedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	// Cheap deterministic vector so similarity math stays stable in tests.
	vec := make([]float32, 8)
	for i, w := range strings.Fields(text) {
		vec[i%len(vec)] += float32(len(w))
	}
	return vec, nil
}

// Completions reports how many completion calls were made.
func (m *MockClient) Completions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completions
}

// Embeddings reports how many embedding calls were made.
func (m *MockClient) Embeddings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embeddings
}

var _ Client = (*MockClient)(nil)
