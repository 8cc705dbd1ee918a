package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelPrefix namespaces every topic on the shared Redis instance.
const channelPrefix = "cafemesh:topic:"

// RedisConfig configures the Redis transport.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// RedisTransport implements Transport over Redis pub/sub. Group chat maps
// directly onto pub/sub: every participant of a broadcast publishes replies
// to the shared broadcast channel, so peers react to each other's output
// until the end token or the timeout fires.
type RedisTransport struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTransport connects to Redis and verifies the connection.
func NewRedisTransport(cfg RedisConfig, logger *zap.Logger) (*RedisTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTransport{
		client: client,
		logger: logger.With(zap.String("component", "redis_transport")),
	}, nil
}

func (t *RedisTransport) Name() string { return "redis" }

func (t *RedisTransport) SupportsGroupChat() bool { return true }

func channelFor(topic string) string { return channelPrefix + topic }

func (t *RedisTransport) Publish(ctx context.Context, topic string, env Envelope) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := t.client.Publish(ctx, channelFor(topic), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (t *RedisTransport) Listen(ctx context.Context, topic string) (Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	pubsub := t.client.Subscribe(ctx, channelFor(topic))
	// Force the SUBSCRIBE round trip so NumListeners observes us immediately.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s failed: %w", topic, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan Envelope, 64),
	}
	go sub.pump(ctx, t.logger, topic)
	return sub, nil
}

func (t *RedisTransport) NumListeners(ctx context.Context, topic string) (int, error) {
	counts, err := t.client.PubSubNumSub(ctx, channelFor(topic)).Result()
	if err != nil {
		return 0, fmt.Errorf("pubsub numsub failed: %w", err)
	}
	return int(counts[channelFor(topic)]), nil
}

// CreateClient binds a client to a handshake topic. Mirrors the topology
// requirement of the underlying broker: at least one live listener must
// exist at client-creation time.
func (t *RedisTransport) CreateClient(ctx context.Context, handshakeTopic string) (Client, error) {
	if handshakeTopic == "" {
		return nil, ErrEmptyTopic
	}
	n, err := t.NumListeners(ctx, handshakeTopic)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoListener, handshakeTopic)
	}
	return NewClient(t, handshakeTopic, t.logger), nil
}

// Ping verifies the Redis connection. Used by readiness probes.
func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTransport) Close() error { return t.client.Close() }

// redisSubscription adapts a redis PubSub to the Subscription interface.
type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan Envelope
}

func (s *redisSubscription) Messages() <-chan Envelope { return s.out }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }

func (s *redisSubscription) pump(ctx context.Context, logger *zap.Logger, topic string) {
	defer close(s.out)
	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("dropping malformed envelope",
					zap.String("topic", topic),
					zap.Error(err),
				)
				continue
			}
			select {
			case s.out <- env:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Ensure RedisTransport implements Transport.
var _ Transport = (*RedisTransport)(nil)
