package agent

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cafemesh/cafemesh/logistics"
	"github.com/cafemesh/cafemesh/transport"
)

func TestLogisticsResponder_ReactStaysSilentOnIdleChatter(t *testing.T) {
	r := NewLogisticsResponder(logistics.Farm())

	_, ok := r.React("No Shipper handling required. Shipper remains IDLE.")
	assert.False(t, ok)

	reply, ok := r.React("Current status: RECEIVED_ORDER")
	assert.True(t, ok)
	assert.Equal(t, "HANDOVER_TO_SHIPPER", reply)
}

func TestLogisticsResponder_RespondAlwaysAnswers(t *testing.T) {
	r := NewLogisticsResponder(logistics.Accountant())

	assert.Equal(t, "PAYMENT_COMPLETE", r.Respond("CUSTOMS_CLEARANCE"))

	idle := r.Respond("nothing for you here")
	assert.Contains(t, idle, "IDLE")
	assert.Contains(t, idle, "Accountant")
}

func TestFarmResponder_Respond(t *testing.T) {
	r := NewFarmResponder("Brazil", 5000)

	assert.Equal(t, "5000 units of coffee available.", r.Respond("What is your current yield inventory?"))

	confirmation := r.Respond("Place an order for 10 units at price 3.5.")
	assert.Regexp(t, regexp.MustCompile(`Order ORD-[0-9A-F]{8} confirmed by Brazil\.`), confirmation)

	id := strings.TrimSuffix(strings.TrimPrefix(confirmation, "Order "), " confirmed by Brazil.")
	details := r.Respond("What are the details of order " + id + "?")
	assert.Contains(t, details, id)
	assert.Contains(t, details, "10 units")

	assert.Equal(t, "No order found with that ID.", r.Respond("What are the details of order ORD-DOESNOTX?"))

	_, ok := r.React("CUSTOMS_CLEARANCE")
	assert.False(t, ok, "farms do not join group chats")
}

func newServiceTransport(t *testing.T) *transport.RedisTransport {
	t.Helper()
	mr := miniredis.RunT(t)
	tr, err := transport.NewRedisTransport(transport.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func waitForListeners(t *testing.T, tr *transport.RedisTransport, topic string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := tr.NumListeners(context.Background(), topic)
		return err == nil && n >= want
	}, 2*time.Second, 5*time.Millisecond, "topic %s never reached %d listeners", topic, want)
}

func TestService_DirectSendGetsReply(t *testing.T) {
	tr := newServiceTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := NewService(tr, "farms.brazil", NewFarmResponder("Brazil", 5000), zap.NewNop())
	go func() { _ = svc.Run(ctx) }()
	waitForListeners(t, tr, "farms.brazil", 1)

	client, err := tr.CreateClient(ctx, "farms.brazil")
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Send(ctx, transport.Envelope{Role: "user", Text: "What is your current yield inventory?"})
	require.NoError(t, err)
	assert.Equal(t, "Brazil", resp.SenderName)
	assert.Equal(t, "5000 units of coffee available.", resp.Text)
}

// TestService_GroupChatConvergesToDelivered walks an order through the full
// status chain. The seed goes to the shipper and accountant first so they
// are already in the chat when the farm kicks off the handover; without that
// staging the test would race the peers' chat subscriptions.
func TestService_GroupChatConvergesToDelivered(t *testing.T) {
	tr := newServiceTransport(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for topic, a := range map[string]logistics.Agent{
		"logistics.farm":       logistics.Farm(),
		"logistics.shipper":    logistics.Shipper(),
		"logistics.accountant": logistics.Accountant(),
	} {
		svc := NewService(tr, topic, NewLogisticsResponder(a), zap.NewNop())
		go func() { _ = svc.Run(ctx) }()
		waitForListeners(t, tr, topic, 1)
	}

	chatTopic := "order." + uuid.NewString()
	sub, err := tr.Listen(ctx, chatTopic)
	require.NoError(t, err)
	defer sub.Close()

	seed := transport.Envelope{
		ID:         uuid.NewString(),
		Role:       "user",
		Text:       "Create an order with price 4.5 and quantity 5. Status: RECEIVED_ORDER",
		ReplyTo:    chatTopic,
		GroupChat:  true,
		EndMessage: "DELIVERED",
		TTLSeconds: 8,
	}

	require.NoError(t, tr.Publish(ctx, "logistics.shipper", seed))
	require.NoError(t, tr.Publish(ctx, "logistics.accountant", seed))
	// The listener count is us plus the two peers that joined the chat.
	waitForListeners(t, tr, chatTopic, 3)
	require.NoError(t, tr.Publish(ctx, "logistics.farm", seed))

	var texts []string
	for {
		select {
		case env := <-sub.Messages():
			texts = append(texts, env.Text)
		case <-ctx.Done():
			t.Fatalf("chat never delivered, transcript so far: %v", texts)
		}
		if strings.Contains(texts[len(texts)-1], "DELIVERED") {
			joined := strings.Join(texts, "\n")
			assert.Contains(t, joined, "HANDOVER_TO_SHIPPER")
			assert.Contains(t, joined, "CUSTOMS_CLEARANCE")
			assert.Contains(t, joined, "PAYMENT_COMPLETE")
			return
		}
	}
}
