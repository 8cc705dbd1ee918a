// Package agent hosts a peer agent on a transport topic: it answers direct
// sends and participates in group-chat broadcasts, where peers react to
// each other's replies until the order converges or the chat expires.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/transport"
)

// Responder is the behavior hosted by a Service.
type Responder interface {
	// Name is the peer's display name, attached to every reply.
	Name() string
	// Respond always produces a reply for a directly addressed message,
	// idle notices included.
	Respond(text string) string
	// React produces a reply for a group-chat message, or ok=false to stay
	// silent. Staying silent on unrecognized chatter is what keeps three
	// peers from trading idle notices forever.
	React(text string) (reply string, ok bool)
}

// Service subscribes a Responder to its topic and serves until the context
// ends.
type Service struct {
	responder Responder
	topic     string
	t         transport.Transport
	logger    *zap.Logger
}

// NewService builds a peer service for the given topic.
func NewService(t transport.Transport, topic string, r Responder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		responder: r,
		topic:     topic,
		t:         t,
		logger:    logger.With(zap.String("component", "agent_service"), zap.String("agent", r.Name())),
	}
}

// Run subscribes and processes inbound envelopes until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	sub, err := s.t.Listen(ctx, s.topic)
	if err != nil {
		return err
	}
	defer sub.Close()

	s.logger.Info("agent listening", zap.String("topic", s.topic))
	for {
		select {
		case env, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			s.handle(ctx, env)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) handle(ctx context.Context, env transport.Envelope) {
	if env.ReplyTo == "" {
		s.logger.Debug("dropping envelope without reply topic", zap.String("id", env.ID))
		return
	}

	// Join the chat before publishing the first reply, so no peer reply
	// published in the meantime is missed. Pub/sub has no replay.
	var chatCtx context.Context
	var chatSub transport.Subscription
	if env.GroupChat {
		ttl := time.Duration(env.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 60 * time.Second
		}
		var cancel context.CancelFunc
		chatCtx, cancel = context.WithTimeout(ctx, ttl)
		sub, err := s.t.Listen(chatCtx, env.ReplyTo)
		if err != nil {
			s.logger.Error("failed to join group chat", zap.Error(err))
			cancel()
			return
		}
		chatSub = sub
		go func() {
			defer cancel()
			defer sub.Close()
			s.chatLoop(chatCtx, env, chatSub)
		}()
	}

	reply := s.responder.Respond(env.Text)
	if err := s.publishReply(ctx, env.ReplyTo, reply); err != nil {
		s.logger.Error("failed to publish reply", zap.Error(err))
	}
}

// chatLoop reacts to other peers' messages on the shared reply topic until
// the end token appears or the chat TTL elapses.
func (s *Service) chatLoop(ctx context.Context, env transport.Envelope, sub transport.Subscription) {
	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if msg.Sender == s.responder.Name() {
				continue
			}
			if env.EndMessage != "" && strings.Contains(msg.Text, env.EndMessage) {
				return
			}
			reply, ok := s.responder.React(msg.Text)
			if !ok {
				continue
			}
			if err := s.publishReply(ctx, env.ReplyTo, reply); err != nil {
				s.logger.Error("failed to publish group-chat reply", zap.Error(err))
				return
			}
			if env.EndMessage != "" && strings.Contains(reply, env.EndMessage) {
				// Our own reply ended the chat.
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) publishReply(ctx context.Context, topic, text string) error {
	s.logger.Debug("replying", zap.String("topic", topic), zap.String("text", text))
	return s.t.Publish(ctx, topic, transport.Envelope{
		ID:     uuid.NewString(),
		Role:   "agent",
		Text:   text,
		Sender: s.responder.Name(),
	})
}
