// Package graph implements the supervisor conversation state machines: the
// exchange and logistic graphs, their routing rules, the order broadcast
// orchestration, and the peer response aggregation.
package graph

import (
	"strings"

	"github.com/cafemesh/cafemesh/types"
)

// Node identifiers.
const (
	// End is the terminal pseudo-node.
	End = "__end__"

	NodeSupervisor     = "exchange_supervisor"
	NodeInventory      = "inventory_broker"
	NodeInventoryTools = "inventory_tools"
	NodeOrders         = "orders_broker"
	NodeOrdersTools    = "orders_tools"
	NodeReflection     = "reflection"
	NodeGeneral        = "general"
)

// OrderDraft captures the arguments of the most recent order tool call so a
// delivery confirmation can be synthesized later in the conversation.
type OrderDraft struct {
	Farm     string  `json:"farm"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// State is the explicit graph state passed between nodes: the transcript,
// the routing hint set by decision nodes, and the in-flight order draft.
// Each Serve call owns one State exclusively; nothing here is shared across
// requests.
type State struct {
	Messages []types.Message
	NextNode string
	Order    *OrderDraft
}

// NewState seeds a state with the user prompt.
func NewState(prompt string) *State {
	return &State{Messages: []types.Message{types.NewUserMessage(prompt)}}
}

// Append adds messages to the transcript. Transcript order is the single
// source of truth for routing decisions.
func (s *State) Append(msgs ...types.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Last returns the most recent message.
func (s *State) Last() (types.Message, bool) {
	if len(s.Messages) == 0 {
		return types.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// RepliesContain reports whether any non-user message contains the token.
// User prompts are excluded: transcript-token guards must react to what the
// peers and the model said, never to what the user typed.
func (s *State) RepliesContain(token string) bool {
	for _, m := range s.Messages {
		if m.Role == types.RoleUser {
			continue
		}
		if strings.Contains(m.Content, token) {
			return true
		}
	}
	return false
}

// LastAssistantContent returns the content of the last assistant message
// with non-empty content.
func (s *State) LastAssistantContent() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == types.RoleAssistant && strings.TrimSpace(m.Content) != "" {
			return strings.TrimSpace(m.Content), true
		}
	}
	return "", false
}
