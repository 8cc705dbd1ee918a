package agent

import "github.com/cafemesh/cafemesh/logistics"

// LogisticsResponder hosts a logistics transition agent.
type LogisticsResponder struct {
	agent logistics.Agent
}

// NewLogisticsResponder wraps a logistics agent as a Responder.
func NewLogisticsResponder(a logistics.Agent) *LogisticsResponder {
	return &LogisticsResponder{agent: a}
}

func (r *LogisticsResponder) Name() string { return r.agent.Name }

// Respond always replies: the next status when actionable, an idle notice
// otherwise.
func (r *LogisticsResponder) Respond(text string) string {
	return r.agent.Reply(text)
}

// React replies only when the message carries a recognizable status token.
// Unknown chatter (idle notices from other peers, free text) gets no group
// reply.
func (r *LogisticsResponder) React(text string) (string, bool) {
	if logistics.ExtractStatus(text) == logistics.StatusUnknown {
		return "", false
	}
	return r.agent.Reply(text), true
}

var _ Responder = (*LogisticsResponder)(nil)
