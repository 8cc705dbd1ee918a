package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/internal/metrics"
	"github.com/cafemesh/cafemesh/logistics"
	"github.com/cafemesh/cafemesh/transport"
	"github.com/cafemesh/cafemesh/types"
)

// Validation strings returned to the model verbatim; they are tool results,
// not errors, so the broker can relay them to the user.
const (
	msgBadPriceQuantity = "Price and quantity must both be greater than zero."
	msgNoFarm           = "No farm provided. Please specify a farm."
)

// Broadcast protocol constants.
const (
	broadcastTimeout  = 60 * time.Second
	broadcastAttempts = 3
	endToken          = "DELIVERED"
)

// Sleeper suspends between retry attempts. Tests inject one that records
// delays instead of waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext waits for d or until ctx is canceled.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OrderBroker fans an order-creation request out to the logistics peers and
// folds their group-chat replies into one summary.
type OrderBroker struct {
	t         transport.Transport
	sleep     Sleeper
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewOrderBroker creates a broker over the given transport.
func NewOrderBroker(t transport.Transport, logger *zap.Logger, collector *metrics.Collector) *OrderBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBroker{
		t:         t,
		sleep:     SleepContext,
		logger:    logger.With(zap.String("component", "order_broker")),
		collector: collector,
	}
}

// WithSleeper replaces the retry sleeper. Intended for tests.
func (b *OrderBroker) WithSleeper(s Sleeper) *OrderBroker {
	b.sleep = s
	return b
}

// CreateOrder runs the order broadcast: validate, handshake with one fixed
// peer, fan out to the full recipient set on a fresh group-chat topic, and
// summarize the collected replies.
//
// Validation failures return a plain string with a nil error so the model
// sees them as tool output. Transport failures are retried with exponential
// backoff; exhaustion surfaces a fatal peer-communication error.
func (b *OrderBroker) CreateOrder(ctx context.Context, farm string, quantity int, price float64) (string, error) {
	if price <= 0 || quantity <= 0 {
		return msgBadPriceQuantity, nil
	}
	farm = strings.ToLower(strings.TrimSpace(farm))
	if farm == "" {
		return msgNoFarm, nil
	}
	if !b.t.SupportsGroupChat() {
		return "", types.NewError(types.ErrConfiguration,
			fmt.Sprintf("transport %q does not support group chat broadcasts", b.t.Name()))
	}

	client, err := b.t.CreateClient(ctx, logistics.ShipperCard.Topic)
	if err != nil {
		return "", types.NewError(types.ErrPeerCommunication, "failed to reach logistics peers").
			WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
	}
	defer client.Close()

	recipients := make([]string, 0, 3)
	for _, card := range logistics.BroadcastRecipients() {
		recipients = append(recipients, card.Topic)
	}

	env := transport.Envelope{
		ID:   uuid.NewString(),
		Role: "user",
		Text: fmt.Sprintf("Create an order with price %v and quantity %d. Status: %s",
			price, quantity, logistics.StatusReceivedOrder),
	}

	var lastErr error
	for attempt := 1; attempt <= broadcastAttempts; attempt++ {
		responses, err := client.Broadcast(ctx, env, transport.BroadcastOptions{
			Topic:      "order." + uuid.NewString(),
			Recipients: recipients,
			Timeout:    broadcastTimeout,
			EndMessage: endToken,
			GroupChat:  true,
		})
		if err == nil {
			b.collector.RecordBroadcastAttempt(true)
			b.collector.RecordBroadcastResponses(len(responses))
			b.logger.Info("order broadcast complete",
				zap.String("farm", farm),
				zap.Int("attempt", attempt),
				zap.Int("responses", len(responses)),
			)
			return SummarizeResponses(responses), nil
		}

		lastErr = err
		b.collector.RecordBroadcastAttempt(false)
		b.logger.Warn("order broadcast failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == broadcastAttempts {
			break
		}
		b.collector.RecordBroadcastRetry()
		backoff := time.Duration(1<<attempt) * time.Second
		if err := b.sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", types.NewError(types.ErrPeerCommunication,
		fmt.Sprintf("order broadcast failed after %d attempts", broadcastAttempts)).
		WithCause(lastErr).
		WithHTTPStatus(http.StatusInternalServerError)
}

// createOrderArgs is the tool-call payload for create_order.
type createOrderArgs struct {
	Farm     string  `json:"farm"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateOrderTool exposes the broker as a model-callable tool. The captured
// state records the order arguments so a delivery confirmation can be
// synthesized after the DELIVERED token appears.
func (b *OrderBroker) CreateOrderTool(s *State) Tool {
	return Tool{
		Schema: llmToolSchema("create_order",
			"Create a coffee order with a farm and track it to delivery. "+
				"Requires the farm name, the quantity in units, and the unit price.",
			`{
  "type": "object",
  "properties": {
    "farm": {"type": "string", "description": "Name of the farm to order from"},
    "quantity": {"type": "integer", "description": "Number of units to order"},
    "price": {"type": "number", "description": "Unit price offered"}
  },
  "required": ["farm", "quantity", "price"]
}`),
		Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args createOrderArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", types.NewError(types.ErrValidation, "malformed create_order arguments").WithCause(err)
			}
			if s != nil {
				s.Order = &OrderDraft{Farm: args.Farm, Quantity: args.Quantity, Price: args.Price}
			}
			return b.CreateOrder(ctx, args.Farm, args.Quantity, args.Price)
		},
	}
}
