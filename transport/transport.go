// Package transport provides the message-passing layer between the
// supervisor graphs and the logistics peer agents: topic-scoped clients,
// request/reply sends, and group-chat broadcasts with end-token early
// termination.
package transport

import (
	"context"
	"time"
)

// Envelope is the unit exchanged with peers over a topic.
type Envelope struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
	// Sender is the peer name of the author, empty for the supervisor.
	Sender string `json:"sender,omitempty"`
	// ReplyTo is the topic replies must be published to.
	ReplyTo string `json:"reply_to,omitempty"`
	// GroupChat marks a broadcast whose reply topic is shared: peers see
	// each other's replies there and may react to them.
	GroupChat bool `json:"group_chat,omitempty"`
	// EndMessage is the token that terminates a group chat when it appears
	// in any reply.
	EndMessage string `json:"end_message,omitempty"`
	// TTLSeconds bounds how long peers stay joined to a group chat.
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

// AgentResponse is a peer's reply as seen by the orchestrator.
type AgentResponse struct {
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

// BroadcastOptions configures a group broadcast.
type BroadcastOptions struct {
	// Topic is the fresh per-call broadcast topic replies are collected on.
	Topic string
	// Recipients are the peer topics the message is fanned out to.
	Recipients []string
	// Timeout bounds the collection window.
	Timeout time.Duration
	// EndMessage stops collection early when it appears in a reply.
	EndMessage string
	// GroupChat keeps collecting as peers react to each other's replies.
	GroupChat bool
}

// Client is a topic-scoped handle for talking to peers.
type Client interface {
	// Send delivers the envelope to the client's peer topic and waits for a
	// single reply. Not retried; failures surface to the caller.
	Send(ctx context.Context, env Envelope) (AgentResponse, error)
	// Broadcast fans the envelope out to opts.Recipients and collects
	// replies on opts.Topic until the end message, the timeout, or ctx
	// cancellation.
	Broadcast(ctx context.Context, env Envelope, opts BroadcastOptions) ([]AgentResponse, error)
	// Close releases the client.
	Close() error
}

// Subscription is a live topic listener.
type Subscription interface {
	// Messages delivers inbound envelopes. The channel closes when the
	// subscription is closed or its context ends.
	Messages() <-chan Envelope
	// Close unsubscribes.
	Close() error
}

// Transport abstracts the wire layer. Implementations must be safe for
// concurrent use; the supervisor creates clients from multiple requests at
// once.
type Transport interface {
	// Name identifies the transport kind (e.g. "redis").
	Name() string
	// SupportsGroupChat reports whether Broadcast may use group-chat mode.
	SupportsGroupChat() bool
	// Publish delivers an envelope to a topic. Fire and forget.
	Publish(ctx context.Context, topic string, env Envelope) error
	// Listen subscribes to a topic.
	Listen(ctx context.Context, topic string) (Subscription, error)
	// NumListeners reports how many live subscribers a topic has.
	NumListeners(ctx context.Context, topic string) (int, error)
	// CreateClient binds a client to a handshake topic. The topic must have
	// at least one live listener at creation time.
	CreateClient(ctx context.Context, handshakeTopic string) (Client, error)
	// Close releases transport resources.
	Close() error
}
