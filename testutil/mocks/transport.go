package mocks

import (
	"context"
	"sync"

	"github.com/cafemesh/cafemesh/transport"
)

// MockTransport is an in-memory transport.Transport. Publish fans envelopes
// out to every live subscription of the topic. Clients can be replaced with
// a scripted factory for failure-injection tests.
type MockTransport struct {
	mu        sync.Mutex
	subs      map[string][]*mockSubscription
	groupChat bool
	closed    bool

	clientFactory func(handshakeTopic string) (transport.Client, error)
}

// NewMockTransport creates a group-chat-capable in-memory transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		subs:      make(map[string][]*mockSubscription),
		groupChat: true,
	}
}

// WithoutGroupChat disables group-chat support, for configuration-error
// tests.
func (t *MockTransport) WithoutGroupChat() *MockTransport {
	t.groupChat = false
	return t
}

// WithClientFactory scripts CreateClient.
func (t *MockTransport) WithClientFactory(fn func(handshakeTopic string) (transport.Client, error)) *MockTransport {
	t.clientFactory = fn
	return t
}

func (t *MockTransport) Name() string { return "mock" }

func (t *MockTransport) SupportsGroupChat() bool { return t.groupChat }

func (t *MockTransport) Publish(_ context.Context, topic string, env transport.Envelope) error {
	if topic == "" {
		return transport.ErrEmptyTopic
	}
	t.mu.Lock()
	subs := append([]*mockSubscription{}, t.subs[topic]...)
	t.mu.Unlock()
	for _, sub := range subs {
		sub.deliver(env)
	}
	return nil
}

func (t *MockTransport) Listen(ctx context.Context, topic string) (transport.Subscription, error) {
	if topic == "" {
		return nil, transport.ErrEmptyTopic
	}
	sub := &mockSubscription{
		out:    make(chan transport.Envelope, 64),
		remove: func(s *mockSubscription) { t.removeSub(topic, s) },
	}
	t.mu.Lock()
	t.subs[topic] = append(t.subs[topic], sub)
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (t *MockTransport) removeSub(topic string, target *mockSubscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[topic]
	for i, s := range subs {
		if s == target {
			t.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (t *MockTransport) NumListeners(_ context.Context, topic string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[topic]), nil
}

func (t *MockTransport) CreateClient(ctx context.Context, handshakeTopic string) (transport.Client, error) {
	if t.clientFactory != nil {
		return t.clientFactory(handshakeTopic)
	}
	n, err := t.NumListeners(ctx, handshakeTopic)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, transport.ErrNoListener
	}
	return transport.NewClient(t, handshakeTopic, nil), nil
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

type mockSubscription struct {
	mu     sync.Mutex
	out    chan transport.Envelope
	closed bool
	remove func(*mockSubscription)
}

func (s *mockSubscription) deliver(env transport.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- env:
	default:
	}
}

func (s *mockSubscription) Messages() <-chan transport.Envelope { return s.out }

func (s *mockSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.out)
	s.mu.Unlock()
	s.remove(s)
	return nil
}

// ScriptedClient is a transport.Client whose Send and Broadcast are supplied
// by the test.
type ScriptedClient struct {
	SendFunc      func(ctx context.Context, env transport.Envelope) (transport.AgentResponse, error)
	BroadcastFunc func(ctx context.Context, env transport.Envelope, opts transport.BroadcastOptions) ([]transport.AgentResponse, error)
}

func (c *ScriptedClient) Send(ctx context.Context, env transport.Envelope) (transport.AgentResponse, error) {
	if c.SendFunc == nil {
		return transport.AgentResponse{}, transport.ErrNoReply
	}
	return c.SendFunc(ctx, env)
}

func (c *ScriptedClient) Broadcast(ctx context.Context, env transport.Envelope, opts transport.BroadcastOptions) ([]transport.AgentResponse, error) {
	if c.BroadcastFunc == nil {
		return nil, transport.ErrNoReply
	}
	return c.BroadcastFunc(ctx, env, opts)
}

func (c *ScriptedClient) Close() error { return nil }

var (
	_ transport.Transport = (*MockTransport)(nil)
	_ transport.Client    = (*ScriptedClient)(nil)
)
