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

	"github.com/cafemesh/cafemesh/identity"
	"github.com/cafemesh/cafemesh/logistics"
	"github.com/cafemesh/cafemesh/transport"
	"github.com/cafemesh/cafemesh/types"
)

// farmBroadcastTimeout bounds the all-farms inventory collection window.
// Farms reply once each; there is no group chat to wait out.
const farmBroadcastTimeout = 15 * time.Second

const msgUnknownFarm = "Unknown farm. Available farms are Brazil, Colombia, and Vietnam."

// FarmBroker executes the exchange-side tools against the farm agents:
// yield inventory queries, order placement, and order lookups.
type FarmBroker struct {
	t        transport.Transport
	verifier identity.Verifier
	logger   *zap.Logger
}

// NewFarmBroker creates a broker over the given transport. The verifier may
// be nil, in which case order placement skips identity checks.
func NewFarmBroker(t transport.Transport, verifier identity.Verifier, logger *zap.Logger) *FarmBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmBroker{
		t:        t,
		verifier: verifier,
		logger:   logger.With(zap.String("component", "farm_broker")),
	}
}

func (b *FarmBroker) sendToFarm(ctx context.Context, card logistics.Card, text string) (string, error) {
	client, err := b.t.CreateClient(ctx, card.Topic)
	if err != nil {
		return "", types.NewError(types.ErrPeerCommunication,
			fmt.Sprintf("failed to reach farm %s", card.Name)).
			WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
	}
	defer client.Close()

	resp, err := client.Send(ctx, transport.Envelope{
		ID:   uuid.NewString(),
		Role: "user",
		Text: text,
	})
	if err != nil {
		return "", types.NewError(types.ErrPeerCommunication,
			fmt.Sprintf("farm %s did not answer", card.Name)).
			WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
	}
	return resp.Text, nil
}

// FarmYieldInventory asks one farm for its current yield inventory.
func (b *FarmBroker) FarmYieldInventory(ctx context.Context, farm string) (string, error) {
	card, ok := logistics.FarmCardFor(farm)
	if !ok {
		return msgUnknownFarm, nil
	}
	return b.sendToFarm(ctx, card, "What is your current yield inventory?")
}

// AllFarmsYieldInventory broadcasts the inventory question to every farm and
// folds the replies into one "name : inventory" listing.
func (b *FarmBroker) AllFarmsYieldInventory(ctx context.Context) (string, error) {
	client, err := b.t.CreateClient(ctx, logistics.BrazilCard.Topic)
	if err != nil {
		return "", types.NewError(types.ErrPeerCommunication, "failed to reach farms").
			WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
	}
	defer client.Close()

	farms := logistics.FarmCards()
	recipients := make([]string, 0, len(farms))
	for _, card := range farms {
		recipients = append(recipients, card.Topic)
	}

	responses, err := client.Broadcast(ctx, transport.Envelope{
		ID:   uuid.NewString(),
		Role: "user",
		Text: "What is your current yield inventory?",
	}, transport.BroadcastOptions{
		Topic:      logistics.FarmBroadcastTopic + "." + uuid.NewString(),
		Recipients: recipients,
		Timeout:    farmBroadcastTimeout,
	})
	if err != nil {
		return "", types.NewError(types.ErrPeerCommunication, "farm inventory broadcast failed").
			WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
	}

	var sb strings.Builder
	for _, r := range responses {
		name := r.SenderName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "%s : %s\n", name, strings.TrimSpace(r.Text))
	}
	if sb.Len() == 0 {
		return "No farms reported inventory.", nil
	}
	return sb.String(), nil
}

// PlaceFarmOrder verifies the farm's identity and places a direct order.
func (b *FarmBroker) PlaceFarmOrder(ctx context.Context, farm string, quantity int, price float64) (string, error) {
	if price <= 0 || quantity <= 0 {
		return msgBadPriceQuantity, nil
	}
	card, ok := logistics.FarmCardFor(farm)
	if !ok {
		return msgUnknownFarm, nil
	}
	if b.verifier != nil {
		verified, err := b.verifier.Verify(ctx, card.Name)
		if err != nil {
			return "", types.NewError(types.ErrPeerCommunication,
				fmt.Sprintf("identity check for farm %s failed", card.Name)).
				WithCause(err).WithHTTPStatus(http.StatusInternalServerError)
		}
		if !verified {
			b.logger.Warn("farm failed identity verification", zap.String("farm", card.Name))
			return fmt.Sprintf("Order rejected: farm %s failed identity verification.", card.Name), nil
		}
	}
	return b.sendToFarm(ctx, card,
		fmt.Sprintf("Place an order for %d units at price %v.", quantity, price))
}

// OrderDetails asks one farm about an existing order.
func (b *FarmBroker) OrderDetails(ctx context.Context, farm, orderID string) (string, error) {
	card, ok := logistics.FarmCardFor(farm)
	if !ok {
		return msgUnknownFarm, nil
	}
	if strings.TrimSpace(orderID) == "" {
		return "No order ID provided. Please specify an order ID.", nil
	}
	return b.sendToFarm(ctx, card, fmt.Sprintf("What are the details of order %s?", orderID))
}

// Tools returns the exchange inventory toolset bound to this broker.
func (b *FarmBroker) Tools() []Tool {
	type farmArgs struct {
		Farm string `json:"farm"`
	}
	type orderArgs struct {
		Farm     string  `json:"farm"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}
	type detailArgs struct {
		Farm    string `json:"farm"`
		OrderID string `json:"order_id"`
	}

	return []Tool{
		{
			Schema: llmToolSchema("get_farm_yield_inventory",
				"Get the current coffee yield inventory of one farm.",
				`{
  "type": "object",
  "properties": {
    "farm": {"type": "string", "description": "Name of the farm to query"}
  },
  "required": ["farm"]
}`),
			Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args farmArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", types.NewError(types.ErrValidation, "malformed get_farm_yield_inventory arguments").WithCause(err)
				}
				return b.FarmYieldInventory(ctx, args.Farm)
			},
		},
		{
			Schema: llmToolSchema("get_all_farms_yield_inventory",
				"Get the current coffee yield inventory of every registered farm.",
				`{"type": "object", "properties": {}}`),
			Run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return b.AllFarmsYieldInventory(ctx)
			},
		},
		{
			Schema: llmToolSchema("create_farm_order",
				"Place a coffee order directly with one farm. Requires the farm name, the quantity in units, and the unit price.",
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
				var args orderArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", types.NewError(types.ErrValidation, "malformed create_farm_order arguments").WithCause(err)
				}
				return b.PlaceFarmOrder(ctx, args.Farm, args.Quantity, args.Price)
			},
		},
		{
			Schema: llmToolSchema("get_order_details",
				"Look up the details of an existing order with a farm.",
				`{
  "type": "object",
  "properties": {
    "farm": {"type": "string", "description": "Name of the farm holding the order"},
    "order_id": {"type": "string", "description": "Identifier of the order"}
  },
  "required": ["farm", "order_id"]
}`),
			Run: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var args detailArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", types.NewError(types.ErrValidation, "malformed get_order_details arguments").WithCause(err)
				}
				return b.OrderDetails(ctx, args.Farm, args.OrderID)
			},
		},
	}
}
