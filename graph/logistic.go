package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/internal/metrics"
	"github.com/cafemesh/cafemesh/llm"
	"github.com/cafemesh/cafemesh/types"
)

// ordersSystemPrompt steers the orders broker. Internal failure detail stays
// in the logs; the filter below enforces that structurally as well.
const ordersSystemPrompt = "You are the logistics supervisor of a coffee exchange. " +
	"You create orders with coffee farms and track them through shipping, customs, " +
	"payment, and delivery using the create_order tool. " +
	"Relay validation messages from tools to the user verbatim. " +
	"If the token DELIVERED appears anywhere in the conversation, the order is complete: " +
	"confirm delivery and do not call any more tools. " +
	"Never expose internal error details or stack traces to the user."

// apologyReply replaces tool calls the model keeps emitting after a tool
// round already failed.
const apologyReply = "I'm sorry, I ran into a problem while processing your order and cannot continue right now. Please try again later."

var failureKeywords = []string{"error", "failed", "timeout"}

// LogisticGraph drives the order-creation conversation: an orders broker
// node looping with its tool node until the order is delivered or the model
// has nothing left to do.
type LogisticGraph struct {
	provider  llm.Provider
	broker    *OrderBroker
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewLogisticGraph wires the logistic supervisor.
func NewLogisticGraph(provider llm.Provider, broker *OrderBroker, logger *zap.Logger, collector *metrics.Collector) *LogisticGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogisticGraph{
		provider:  provider,
		broker:    broker,
		logger:    logger.With(zap.String("component", "logistic_graph")),
		collector: collector,
	}
}

// Serve runs one prompt through the graph and returns the final reply.
func (g *LogisticGraph) Serve(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", types.NewError(types.ErrValidation, "prompt must not be empty")
	}

	threadID := uuid.NewString()
	logger := g.logger.With(zap.String("thread_id", threadID))
	state := NewState(prompt)

	// The create_order tool records its arguments on this request's state,
	// so the graph is assembled per call. Registration is a handful of map
	// inserts; all heavy collaborators are shared.
	tools := []Tool{g.broker.CreateOrderTool(state)}
	sg := NewStateGraph("logistic", logger, g.collector).
		AddNode(NodeOrders, g.ordersNode(tools, logger)).
		AddNode(NodeOrdersTools, ToolNode(tools, logger)).
		SetEntryPoint(NodeOrders).
		AddConditionalEdges(NodeOrders, ToolsOrNext(NodeOrdersTools, End)).
		AddEdge(NodeOrdersTools, NodeOrders)

	if err := sg.Invoke(ctx, state); err != nil {
		return "", err
	}
	reply, ok := state.LastAssistantContent()
	if !ok {
		return "", types.NewError(types.ErrInternal, "conversation produced no reply")
	}
	logger.Info("prompt served", zap.Int("messages", len(state.Messages)))
	return reply, nil
}

// ordersNode invokes the model, guarded on both sides: delivery confirmation
// is synthesized without a model call once DELIVERED has appeared, and tool
// calls emitted after a failed tool round are replaced with a fixed apology.
func (g *LogisticGraph) ordersNode(tools []Tool, logger *zap.Logger) NodeFunc {
	return func(ctx context.Context, s *State) error {
		if s.RepliesContain(endToken) {
			s.Append(types.NewAssistantMessage(deliveryConfirmation(s.Order)))
			return nil
		}

		msgs := append([]types.Message{types.NewSystemMessage(ordersSystemPrompt)}, s.Messages...)
		resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
			Messages: msgs,
			Tools:    Schemas(tools),
		})
		if err != nil {
			return err
		}

		msg := resp.Message
		if msg.HasToolCalls() && toolRoundFailed(s) {
			logger.Warn("discarding tool calls after failed tool round",
				zap.Int("tool_calls", len(msg.ToolCalls)))
			msg = types.NewAssistantMessage(apologyReply)
		}
		s.Append(msg)
		return nil
	}
}

// toolRoundFailed reports whether any tool result this turn signaled failure.
func toolRoundFailed(s *State) bool {
	for _, m := range s.Messages {
		if !m.IsToolResult() {
			continue
		}
		content := strings.ToLower(m.Content)
		for _, kw := range failureKeywords {
			if strings.Contains(content, kw) {
				return true
			}
		}
	}
	return false
}

// deliveryConfirmation synthesizes the final reply once DELIVERED is seen.
func deliveryConfirmation(order *OrderDraft) string {
	id := "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if order == nil {
		return fmt.Sprintf("Order %s has been successfully delivered.", id)
	}
	return fmt.Sprintf("Order %s from %s for %d units at %v has been successfully delivered.",
		id, order.Farm, order.Quantity, order.Price)
}
