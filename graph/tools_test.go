package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/types"
)

func callState(toolName string) *State {
	s := NewState("hi")
	s.Append(types.Message{
		Role:      types.RoleAssistant,
		ToolCalls: []types.ToolCall{{ID: "1", Name: toolName, Arguments: json.RawMessage(`{}`)}},
	})
	return s
}

func namedTool(name string, run func(ctx context.Context, args json.RawMessage) (string, error)) Tool {
	return Tool{Schema: llmToolSchema(name, "", `{"type": "object"}`), Run: run}
}

func TestToolNode_UnknownToolBecomesResultText(t *testing.T) {
	node := ToolNode(nil, nil)
	s := callState("no_such_tool")

	require.NoError(t, node(context.Background(), s))

	last, ok := s.Last()
	require.True(t, ok)
	assert.True(t, last.IsToolResult())
	assert.Equal(t, `Error: unknown tool "no_such_tool"`, last.Content)
}

func TestToolNode_ValidationErrorBecomesResultText(t *testing.T) {
	tool := namedTool("check", func(context.Context, json.RawMessage) (string, error) {
		return "", types.NewError(types.ErrValidation, "bad arguments")
	})
	s := callState("check")

	require.NoError(t, ToolNode([]Tool{tool}, nil)(context.Background(), s))

	last, _ := s.Last()
	assert.Contains(t, last.Content, "Error:")
	assert.Contains(t, last.Content, "bad arguments")
}

func TestToolNode_PeerFailureAbortsConversation(t *testing.T) {
	fatal := types.NewError(types.ErrPeerCommunication, "broadcast failed after 3 attempts").
		WithHTTPStatus(500)
	tool := namedTool("order", func(context.Context, json.RawMessage) (string, error) {
		return "", fatal
	})
	s := callState("order")

	err := ToolNode([]Tool{tool}, nil)(context.Background(), s)
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.ErrPeerCommunication, apiErr.Code)

	// No tool result is appended for the aborted call.
	last, _ := s.Last()
	assert.False(t, last.IsToolResult())
}

func TestToolNode_ConfigurationErrorAbortsConversation(t *testing.T) {
	tool := namedTool("order", func(context.Context, json.RawMessage) (string, error) {
		return "", types.NewError(types.ErrConfiguration, "transport cannot group chat")
	})
	s := callState("order")

	err := ToolNode([]Tool{tool}, nil)(context.Background(), s)
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.ErrConfiguration, apiErr.Code)
}

func TestToolNode_PlainErrorBecomesResultText(t *testing.T) {
	tool := namedTool("check", func(context.Context, json.RawMessage) (string, error) {
		return "", errors.New("hiccup")
	})
	s := callState("check")

	require.NoError(t, ToolNode([]Tool{tool}, nil)(context.Background(), s))

	last, _ := s.Last()
	assert.Equal(t, "Error: hiccup", last.Content)
}
