package mock

import (
	"context"
	"sync"

	"github.com/poiesic/graphqa/ai"
)

// MockLanguageModel is a test double for ai.LanguageModel.
// It records every prompt and is safe for concurrent use.
type MockLanguageModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Reply.
	CompleteFunc func(ctx context.Context, prompt ai.Prompt) (string, error)

	// Reply is the default completion.
	Reply string

	mu      sync.Mutex
	prompts []ai.Prompt
}

// NewMockLanguageModel creates a mock model that answers "ok".
// Note: Returns concrete type to allow test assertions.
func NewMockLanguageModel() *MockLanguageModel {
	return &MockLanguageModel{Reply: "ok"}
}

// Complete records the prompt and returns the configured reply.
func (m *MockLanguageModel) Complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return m.Reply, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the prompts received so far.
func (m *MockLanguageModel) Prompts() []ai.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Prompt(nil), m.prompts...)
}

// LastPrompt returns the most recent prompt, or the zero Prompt.
func (m *MockLanguageModel) LastPrompt() ai.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ai.Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears recorded prompts and custom behaviour.
func (m *MockLanguageModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.CompleteFunc = nil
	m.Reply = "ok"
}
