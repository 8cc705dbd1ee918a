package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/llm"
	"github.com/cafemesh/cafemesh/types"
)

// Tool pairs the schema advertised to the model with the function that
// executes a call against it.
type Tool struct {
	Schema llm.ToolSchema
	Run    func(ctx context.Context, args json.RawMessage) (string, error)
}

// llmToolSchema builds a ToolSchema from a raw JSON Schema literal.
func llmToolSchema(name, description, parameters string) llm.ToolSchema {
	return llm.ToolSchema{
		Name:        name,
		Description: description,
		Parameters:  json.RawMessage(parameters),
	}
}

// Schemas extracts the advertised schemas for a Completion request.
func Schemas(tools []Tool) []llm.ToolSchema {
	out := make([]llm.ToolSchema, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Schema)
	}
	return out
}

// ToolNode executes every tool call on the last transcript message and
// appends one tool-result message per call. Recoverable execution errors
// become result text, so the broker sees the failure and can answer the
// user. Fatal errors abort the conversation: peer failures have already
// exhausted their retries and must surface to the caller as such.
func ToolNode(tools []Tool, logger *zap.Logger) NodeFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Schema.Name] = t
	}

	return func(ctx context.Context, s *State) error {
		last, ok := s.Last()
		if !ok || !last.HasToolCalls() {
			return nil
		}
		for _, call := range last.ToolCalls {
			var content string
			tool, found := byName[call.Name]
			switch {
			case !found:
				content = fmt.Sprintf("Error: unknown tool %q", call.Name)
			default:
				result, err := tool.Run(ctx, call.Arguments)
				if err != nil {
					if isFatalToolError(err) {
						logger.Error("tool execution failed fatally",
							zap.String("tool", call.Name),
							zap.Error(err),
						)
						return err
					}
					logger.Warn("tool execution failed",
						zap.String("tool", call.Name),
						zap.Error(err),
					)
					content = "Error: " + err.Error()
				} else {
					content = result
				}
			}
			s.Append(types.NewToolMessage(call.ID, call.Name, content))
		}
		return nil
	}
}

// isFatalToolError reports whether a tool failure must abort the
// conversation instead of being relayed to the model. Validation-class
// errors stay as tool output so the broker can answer the user.
func isFatalToolError(err error) bool {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case types.ErrPeerCommunication, types.ErrConfiguration:
		return true
	}
	return false
}
