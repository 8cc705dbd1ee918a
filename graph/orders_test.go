package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/testutil/mocks"
	"github.com/cafemesh/cafemesh/transport"
	"github.com/cafemesh/cafemesh/types"
)

// recordingSleeper captures backoff delays instead of waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestCreateOrder_ValidationNoNetwork(t *testing.T) {
	clientCreations := 0
	mt := mocks.NewMockTransport().WithClientFactory(func(string) (transport.Client, error) {
		clientCreations++
		return &mocks.ScriptedClient{}, nil
	})
	broker := NewOrderBroker(mt, nil, nil)

	out, err := broker.CreateOrder(context.Background(), "brazil", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "Price and quantity must both be greater than zero.", out)

	out, err = broker.CreateOrder(context.Background(), "brazil", 5, -1)
	require.NoError(t, err)
	assert.Equal(t, "Price and quantity must both be greater than zero.", out)

	out, err = broker.CreateOrder(context.Background(), "", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "No farm provided. Please specify a farm.", out)

	// Whitespace-only farm names are empty after normalization.
	out, err = broker.CreateOrder(context.Background(), "   ", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "No farm provided. Please specify a farm.", out)

	assert.Zero(t, clientCreations, "validation failures must not touch the transport")
}

func TestCreateOrder_GroupChatUnsupported(t *testing.T) {
	mt := mocks.NewMockTransport().WithoutGroupChat()
	broker := NewOrderBroker(mt, nil, nil)

	_, err := broker.CreateOrder(context.Background(), "brazil", 5, 10)
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.ErrConfiguration, apiErr.Code)
}

func TestCreateOrder_RetrySucceedsOnThirdAttempt(t *testing.T) {
	attempts := 0
	client := &mocks.ScriptedClient{
		BroadcastFunc: func(_ context.Context, env transport.Envelope, opts transport.BroadcastOptions) ([]transport.AgentResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("broker unreachable")
			}
			assert.True(t, opts.GroupChat)
			assert.Equal(t, "DELIVERED", opts.EndMessage)
			assert.Len(t, opts.Recipients, 3)
			assert.Contains(t, env.Text, "RECEIVED_ORDER")
			return []transport.AgentResponse{
				{SenderName: "Farm", Text: "HANDOVER_TO_SHIPPER"},
				{SenderName: "Shipper", Text: "DELIVERED"},
			}, nil
		},
	}
	mt := mocks.NewMockTransport().WithClientFactory(func(string) (transport.Client, error) {
		return client, nil
	})

	sleeper := &recordingSleeper{}
	broker := NewOrderBroker(mt, nil, nil).WithSleeper(sleeper.sleep)

	out, err := broker.CreateOrder(context.Background(), "brazil", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Contains(t, out, "Farm: HANDOVER_TO_SHIPPER")
	assert.Contains(t, out, "Shipper: DELIVERED")
	assert.Contains(t, out, " (final)")
}

func TestCreateOrder_AllAttemptsFail(t *testing.T) {
	attempts := 0
	client := &mocks.ScriptedClient{
		BroadcastFunc: func(context.Context, transport.Envelope, transport.BroadcastOptions) ([]transport.AgentResponse, error) {
			attempts++
			return nil, errors.New("broker unreachable")
		},
	}
	mt := mocks.NewMockTransport().WithClientFactory(func(string) (transport.Client, error) {
		return client, nil
	})

	sleeper := &recordingSleeper{}
	broker := NewOrderBroker(mt, nil, nil).WithSleeper(sleeper.sleep)

	out, err := broker.CreateOrder(context.Background(), "brazil", 5, 10)
	assert.Empty(t, out, "no partial summary on exhaustion")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.ErrPeerCommunication, apiErr.Code)
	assert.Equal(t, 500, apiErr.HTTPStatus)
}

func TestCreateOrder_HandshakeFailure(t *testing.T) {
	mt := mocks.NewMockTransport().WithClientFactory(func(string) (transport.Client, error) {
		return nil, transport.ErrNoListener
	})
	broker := NewOrderBroker(mt, nil, nil)

	_, err := broker.CreateOrder(context.Background(), "brazil", 5, 10)
	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, types.ErrPeerCommunication, apiErr.Code)
}

func TestCreateOrderTool_RecordsDraft(t *testing.T) {
	client := &mocks.ScriptedClient{
		BroadcastFunc: func(context.Context, transport.Envelope, transport.BroadcastOptions) ([]transport.AgentResponse, error) {
			return []transport.AgentResponse{{SenderName: "Shipper", Text: "DELIVERED"}}, nil
		},
	}
	mt := mocks.NewMockTransport().WithClientFactory(func(string) (transport.Client, error) {
		return client, nil
	})
	broker := NewOrderBroker(mt, nil, nil)

	state := NewState("order coffee")
	tool := broker.CreateOrderTool(state)

	out, err := tool.Run(context.Background(), []byte(`{"farm":"brazil","quantity":5,"price":4.5}`))
	require.NoError(t, err)
	assert.Contains(t, out, " (final)")

	require.NotNil(t, state.Order)
	assert.Equal(t, "brazil", state.Order.Farm)
	assert.Equal(t, 5, state.Order.Quantity)
	assert.Equal(t, 4.5, state.Order.Price)
}
