// Package mocks provides test doubles for the LLM provider and the peer
// transport. Scenarios are scripted per test; nothing here touches the
// network.
package mocks

import (
	"context"
	"sync"

	"github.com/cafemesh/cafemesh/llm"
	"github.com/cafemesh/cafemesh/types"
)

// MockProvider is a scriptable llm.Provider. Responses are consumed in
// order; when the script runs out, the last response repeats.
type MockProvider struct {
	mu sync.Mutex

	responses      []*llm.ChatResponse
	err            error
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	calls []*llm.ChatRequest
}

// NewMockProvider creates an empty provider that answers with a fixed
// default message.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// WithResponses scripts the responses in order.
func (m *MockProvider) WithResponses(responses ...*llm.ChatResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	return m
}

// WithError makes every call fail.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompletionFunc overrides the scripted behavior entirely.
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

func (m *MockProvider) Name() string { return "mock" }

// Completion replays the script.
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.completionFunc
	err := m.err
	var resp *llm.ChatResponse
	if len(m.responses) > 0 {
		resp = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &llm.ChatResponse{
			Message:      types.NewAssistantMessage("mock response"),
			FinishReason: "stop",
		}
	}
	return resp, nil
}

// Calls returns the recorded requests.
func (m *MockProvider) Calls() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest{}, m.calls...)
}

// TextResponse builds a plain assistant reply.
func TextResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:      types.NewAssistantMessage(content),
		FinishReason: "stop",
	}
}

// ToolCallResponse builds a reply that invokes one tool.
func ToolCallResponse(id, name, args string) *llm.ChatResponse {
	msg := types.Message{
		Role: types.RoleAssistant,
		ToolCalls: []types.ToolCall{
			{ID: id, Name: name, Arguments: []byte(args)},
		},
	}
	return &llm.ChatResponse{Message: msg, FinishReason: "tool_calls"}
}

var _ llm.Provider = (*MockProvider)(nil)
