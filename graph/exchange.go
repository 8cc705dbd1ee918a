package graph

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/internal/metrics"
	"github.com/cafemesh/cafemesh/llm"
	"github.com/cafemesh/cafemesh/types"
)

// generalReply is the fallback for prompts the supervisor cannot classify.
const generalReply = "I'm not sure how to handle that. Could you please clarify?"

const supervisorSystemPrompt = "You are the supervisor of a coffee exchange. " +
	"Classify the user's request into exactly one category: " +
	`"inventory" for questions about farm yield inventory, ` +
	`"orders" for placing orders with farms or looking up existing orders, ` +
	`"general" for anything else. ` +
	`Respond ONLY with a JSON object: {"next": "<category>"}.`

const inventorySystemPrompt = "You are the inventory broker of a coffee exchange. " +
	"Answer questions about farm yield inventory using your tools. " +
	"Relay validation messages from tools to the user verbatim. " +
	"Never expose internal error details or stack traces to the user."

const exchangeOrdersSystemPrompt = "You are the orders broker of a coffee exchange. " +
	"Place orders with farms and look up existing orders using your tools. " +
	"Relay validation messages from tools to the user verbatim. " +
	"Never expose internal error details or stack traces to the user."

// ExchangeGraph drives the exchange conversation: a supervisor classifies
// the prompt, a broker node handles it with its toolset, and a reflection
// node decides whether another supervisor round is warranted.
type ExchangeGraph struct {
	provider  llm.Provider
	broker    *FarmBroker
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewExchangeGraph wires the exchange supervisor.
func NewExchangeGraph(provider llm.Provider, broker *FarmBroker, logger *zap.Logger, collector *metrics.Collector) *ExchangeGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeGraph{
		provider:  provider,
		broker:    broker,
		logger:    logger.With(zap.String("component", "exchange_graph")),
		collector: collector,
	}
}

// Serve runs one prompt through the graph and returns the final reply.
func (g *ExchangeGraph) Serve(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", types.NewError(types.ErrValidation, "prompt must not be empty")
	}

	threadID := uuid.NewString()
	logger := g.logger.With(zap.String("thread_id", threadID))
	state := NewState(prompt)

	allTools := g.broker.Tools()
	inventoryTools := make([]Tool, 0, 2)
	orderTools := make([]Tool, 0, 2)
	for _, t := range allTools {
		switch t.Schema.Name {
		case "get_farm_yield_inventory", "get_all_farms_yield_inventory":
			inventoryTools = append(inventoryTools, t)
		default:
			orderTools = append(orderTools, t)
		}
	}

	sg := NewStateGraph("exchange", logger, g.collector).
		AddNode(NodeSupervisor, g.supervisorNode(logger)).
		AddNode(NodeInventory, g.brokerNode(inventorySystemPrompt, inventoryTools, logger)).
		AddNode(NodeInventoryTools, ToolNode(inventoryTools, logger)).
		AddNode(NodeOrders, g.brokerNode(exchangeOrdersSystemPrompt, orderTools, logger)).
		AddNode(NodeOrdersTools, ToolNode(orderTools, logger)).
		AddNode(NodeReflection, g.reflectionNode(logger)).
		AddNode(NodeGeneral, generalNode).
		SetEntryPoint(NodeSupervisor).
		AddConditionalEdges(NodeSupervisor, func(s *State) string { return s.NextNode }).
		AddConditionalEdges(NodeInventory, ToolsOrNext(NodeInventoryTools, NodeReflection)).
		AddConditionalEdges(NodeOrders, ToolsOrNext(NodeOrdersTools, NodeReflection)).
		AddEdge(NodeInventoryTools, NodeInventory).
		AddEdge(NodeOrdersTools, NodeOrders).
		AddConditionalEdges(NodeReflection, func(s *State) string { return s.NextNode }).
		AddEdge(NodeGeneral, End)

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

// supervisorNode classifies intent and sets the next node.
func (g *ExchangeGraph) supervisorNode(logger *zap.Logger) NodeFunc {
	return func(ctx context.Context, s *State) error {
		msgs := append([]types.Message{types.NewSystemMessage(supervisorSystemPrompt)}, s.Messages...)
		resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
			Messages:       msgs,
			ResponseFormat: "json_object",
		})
		if err != nil {
			return err
		}

		var verdict struct {
			Next string `json:"next"`
		}
		content := strings.TrimSpace(resp.Message.Content)
		if err := json.Unmarshal([]byte(content), &verdict); err != nil {
			logger.Warn("unparseable supervisor verdict", zap.String("content", content))
			verdict.Next = "general"
		}
		switch strings.ToLower(verdict.Next) {
		case "inventory":
			s.NextNode = NodeInventory
		case "orders":
			s.NextNode = NodeOrders
		default:
			s.NextNode = NodeGeneral
		}
		logger.Debug("intent classified", zap.String("next", s.NextNode))
		return nil
	}
}

// brokerNode invokes the model with the node's toolset, with the same
// post-failure tool-call guard the logistic graph applies.
func (g *ExchangeGraph) brokerNode(systemPrompt string, tools []Tool, logger *zap.Logger) NodeFunc {
	return func(ctx context.Context, s *State) error {
		msgs := append([]types.Message{types.NewSystemMessage(systemPrompt)}, s.Messages...)
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

// reflectionNode asks the model whether to continue. Two identical
// consecutive assistant replies force termination regardless of the verdict.
func (g *ExchangeGraph) reflectionNode(logger *zap.Logger) NodeFunc {
	return func(ctx context.Context, s *State) error {
		if repeatedAssistantReply(s) {
			logger.Warn("identical consecutive replies, forcing termination")
			s.NextNode = End
			return nil
		}

		verdict, err := llm.ReflectionVerdict(ctx, g.provider, s.Messages)
		if err != nil {
			return err
		}
		logger.Debug("reflection verdict",
			zap.Bool("should_continue", verdict.ShouldContinue),
			zap.String("reason", verdict.Reason),
		)
		if verdict.ShouldContinue {
			s.NextNode = NodeSupervisor
		} else {
			s.NextNode = End
		}
		return nil
	}
}

// repeatedAssistantReply reports whether the last two assistant messages
// carry identical content, the loop signature of a model repeating itself.
func repeatedAssistantReply(s *State) bool {
	var prev string
	var seen int
	for i := len(s.Messages) - 1; i >= 0 && seen < 2; i-- {
		m := s.Messages[i]
		if m.Role != types.RoleAssistant || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if seen == 0 {
			prev = m.Content
		} else if m.Content == prev {
			return true
		}
		seen++
	}
	return false
}

func generalNode(_ context.Context, s *State) error {
	s.Append(types.NewAssistantMessage(generalReply))
	return nil
}
