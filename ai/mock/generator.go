package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docqa/ai"
)

// DefaultAnswer is returned by MockGenerator when no behavior is injected.
const DefaultAnswer = "The documents describe the requested topic in detail."

// MockGenerator is a test double for ai.Generator.
// It records every prompt and returns scripted completions.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)

	// PingFunc is called by Ping if set. If nil, Ping succeeds.
	PingFunc func(ctx context.Context) error

	mu      sync.Mutex
	prompts []string
	options []ai.GenerateOptions
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a generator that always answers DefaultAnswer.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewScriptedGenerator creates a generator that always returns response and err.
func NewScriptedGenerator(response string, err error) *MockGenerator {
	return &MockGenerator{
		GenerateFunc: func(context.Context, string, ai.GenerateOptions) (string, error) {
			return response, err
		},
	}
}

// Generate records the prompt and returns the scripted completion.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, opts)
	}
	return DefaultAnswer, nil
}

// Ping reports the scripted health.
func (m *MockGenerator) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Prompts returns a copy of every prompt received.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options of the most recent call.
func (m *MockGenerator) LastOptions() (ai.GenerateOptions, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return ai.GenerateOptions{}, false
	}
	return m.options[len(m.options)-1], true
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
