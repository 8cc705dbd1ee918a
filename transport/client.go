package transport

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// topicClient implements Client on top of the Transport primitives, so every
// transport kind shares the same send/broadcast semantics.
type topicClient struct {
	t      Transport
	topic  string
	logger *zap.Logger
}

// NewClient builds a Client bound to the given peer topic. Callers normally
// go through Transport.CreateClient, which also enforces the live-listener
// handshake requirement.
func NewClient(t Transport, topic string, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &topicClient{t: t, topic: topic, logger: logger.With(zap.String("component", "transport_client"))}
}

// defaultSendTimeout bounds a direct send when the caller's context carries
// no deadline.
const defaultSendTimeout = 30 * time.Second

func (c *topicClient) Send(ctx context.Context, env Envelope) (AgentResponse, error) {
	if c.topic == "" {
		return AgentResponse{}, ErrEmptyTopic
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSendTimeout)
		defer cancel()
	}

	replyTopic := "reply." + uuid.NewString()
	sub, err := c.t.Listen(ctx, replyTopic)
	if err != nil {
		return AgentResponse{}, err
	}
	defer sub.Close()

	env.ReplyTo = replyTopic
	env.GroupChat = false
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if err := c.t.Publish(ctx, c.topic, env); err != nil {
		return AgentResponse{}, err
	}

	select {
	case reply, ok := <-sub.Messages():
		if !ok {
			return AgentResponse{}, ErrNoReply
		}
		return AgentResponse{SenderName: reply.Sender, Text: reply.Text}, nil
	case <-ctx.Done():
		return AgentResponse{}, ctx.Err()
	}
}

func (c *topicClient) Broadcast(ctx context.Context, env Envelope, opts BroadcastOptions) ([]AgentResponse, error) {
	if opts.GroupChat && !c.t.SupportsGroupChat() {
		return nil, ErrGroupChatUnsupported
	}
	if opts.Topic == "" {
		return nil, ErrEmptyTopic
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Join the broadcast topic before fanning out so no reply is lost.
	sub, err := c.t.Listen(ctx, opts.Topic)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	env.ReplyTo = opts.Topic
	env.GroupChat = opts.GroupChat
	env.EndMessage = opts.EndMessage
	env.TTLSeconds = int(timeout / time.Second)
	if env.ID == "" {
		env.ID = uuid.NewString()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, recipient := range opts.Recipients {
		recipient := recipient
		g.Go(func() error {
			return c.t.Publish(gctx, recipient, env)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.logger.Debug("broadcast published",
		zap.String("broadcast_topic", opts.Topic),
		zap.Strings("recipients", opts.Recipients),
	)

	var responses []AgentResponse
	for {
		select {
		case reply, ok := <-sub.Messages():
			if !ok {
				return responses, nil
			}
			responses = append(responses, AgentResponse{SenderName: reply.Sender, Text: reply.Text})
			if opts.EndMessage != "" && strings.Contains(reply.Text, opts.EndMessage) {
				c.logger.Debug("end message observed, stopping collection",
					zap.String("end_message", opts.EndMessage),
					zap.Int("responses", len(responses)),
				)
				return responses, nil
			}
		case <-ctx.Done():
			// The collection window elapsing is the normal way a group chat
			// ends when no terminal token appears.
			return responses, nil
		}
	}
}

func (c *topicClient) Close() error { return nil }
