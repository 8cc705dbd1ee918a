// Package llm defines the provider abstraction the supervisor graphs invoke.
// The LLM is an opaque collaborator: the graphs hand it a transcript plus
// bound tool schemas and get back content and tool calls.
package llm

import (
	"context"
	"encoding/json"

	"github.com/cafemesh/cafemesh/types"
)

// ToolSchema defines a tool's interface for LLM function calling.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ChatRequest is one completion request.
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Tools       []ToolSchema    `json:"tools,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	// ResponseFormat forces structured output when set to "json_object".
	ResponseFormat string `json:"response_format,omitempty"`
}

// ChatResponse is the provider's reply.
type ChatResponse struct {
	Message      types.Message `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// Provider is the unified LLM adapter interface. A provider failure is
// fatal for the current turn; no retry happens at this layer.
type Provider interface {
	// Completion performs a synchronous chat request.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier.
	Name() string
}
