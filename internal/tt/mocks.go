package tt

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// MockRunnable - implements modular.Runnable
// -----------------------------------------------------------------------------

// MockRunnable is a configurable mock that implements modular.Runnable.
// Queued responses and errors are consumed one per call; once the queue is
// exhausted the handler (if any) is used, otherwise the input is echoed.
type MockRunnable struct {
	mu        sync.Mutex
	name      string
	responses []any
	errors    []error
	handler   func(input any) (any, error)
	keywords  []string

	// Inputs stores the input of every Execute call, in order.
	Inputs []any
}

// NewMockRunnable creates a new MockRunnable.
func NewMockRunnable(name string) *MockRunnable {
	return &MockRunnable{name: name}
}

// Name returns the mock's name.
func (m *MockRunnable) Name() string {
	return m.name
}

// AddResponse queues a successful result.
func (m *MockRunnable) AddResponse(output any) *MockRunnable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, output)
	m.errors = append(m.errors, nil)
	return m
}

// AddError queues a failure.
func (m *MockRunnable) AddError(err error) *MockRunnable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, nil)
	m.errors = append(m.errors, err)
	return m
}

// WithHandler sets the function used once the queue is exhausted.
func (m *MockRunnable) WithHandler(fn func(input any) (any, error)) *MockRunnable {
	m.handler = fn
	return m
}

// WithKeywords makes ShouldUse match text containing any of the keywords.
func (m *MockRunnable) WithKeywords(keywords ...string) *MockRunnable {
	m.keywords = keywords
	return m
}

// CallCount returns the number of times Execute has been called.
func (m *MockRunnable) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Inputs)
}

// Execute implements modular.Runnable.
func (m *MockRunnable) Execute(ctx context.Context, input any) (any, error) {
	m.mu.Lock()
	idx := len(m.Inputs)
	m.Inputs = append(m.Inputs, input)
	handler := m.handler
	var (
		resp   any
		err    error
		queued bool
	)
	if idx < len(m.responses) {
		resp, err, queued = m.responses[idx], m.errors[idx], true
	}
	m.mu.Unlock()

	if queued {
		return resp, err
	}
	if handler != nil {
		return handler(input)
	}
	return input, nil
}

// ShouldUse implements modular.Applicable.
func (m *MockRunnable) ShouldUse(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range m.keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// MockLLM - implements llms.Model
// -----------------------------------------------------------------------------

// MockLLM is a configurable mock that implements langchaingo's llms.Model.
// Responses are returned in order; after the queue is exhausted the last
// response repeats.
type MockLLM struct {
	mu        sync.Mutex
	responses []string
	errors    []error
	callCount int

	// Prompts stores the text of every call, in order.
	Prompts []string

	// Options stores the resolved call options of every call, in order.
	Options []llms.CallOptions
}

// NewMockLLM creates a new MockLLM.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// AddResponse queues a text response.
func (m *MockLLM) AddResponse(content string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, content)
	m.errors = append(m.errors, nil)
	return m
}

// AddError queues an error.
func (m *MockLLM) AddError(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, "")
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of model calls.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GenerateContent implements llms.Model.
func (m *MockLLM) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				prompt.WriteString(tc.Text)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.callCount
	m.callCount++
	m.Prompts = append(m.Prompts, prompt.String())
	m.Options = append(m.Options, opts)

	if len(m.responses) == 0 {
		return &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "ok"}},
		}, nil
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	if m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

// Call implements llms.Model.
func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
