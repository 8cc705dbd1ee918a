package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafemesh/cafemesh/transport"
)

func TestSummarizeResponses_StatusScenario(t *testing.T) {
	responses := []transport.AgentResponse{
		{SenderName: "Shipper", Text: "HANDOVER_TO_SHIPPER"},
		{SenderName: "Shipper", Text: "idle, nothing to do"},
		{SenderName: "Accountant", Text: "PAYMENT_COMPLETE"},
		{SenderName: "Shipper", Text: "DELIVERED"},
	}

	summary := SummarizeResponses(responses)

	assert.Contains(t, summary, "Shipper: HANDOVER_TO_SHIPPER")
	assert.Contains(t, summary, "Accountant: PAYMENT_COMPLETE")
	assert.Contains(t, summary, "Shipper: DELIVERED")
	assert.Contains(t, summary, " (final)")
	assert.NotContains(t, summary, "idle")
	assert.Contains(t, summary, "Order status updates: ")
}

func TestSummarizeResponses_Empty(t *testing.T) {
	assert.Equal(t, "No non-idle status updates received.", SummarizeResponses(nil))
	assert.Equal(t, "No non-idle status updates received.", SummarizeResponses([]transport.AgentResponse{}))
}

func TestSummarizeResponses_AllIdle(t *testing.T) {
	responses := []transport.AgentResponse{
		{SenderName: "Farm", Text: "Farm remains IDLE."},
		{SenderName: "Shipper", Text: ""},
		{SenderName: "Accountant", Text: "  "},
	}
	assert.Equal(t, "No non-idle status updates received.", SummarizeResponses(responses))
}

func TestSummarizeResponses_AdjacentDedup(t *testing.T) {
	responses := []transport.AgentResponse{
		{SenderName: "Farm", Text: "HANDOVER_TO_SHIPPER"},
		{SenderName: "Farm", Text: "HANDOVER_TO_SHIPPER"},
		{SenderName: "Farm", Text: "CUSTOMS_CLEARANCE"},
		{SenderName: "Farm", Text: "HANDOVER_TO_SHIPPER"},
	}

	summary := SummarizeResponses(responses)

	// Adjacent duplicates collapse; a later repeat after a different status
	// is kept.
	assert.Equal(t,
		"Order status updates: Farm: HANDOVER_TO_SHIPPER, CUSTOMS_CLEARANCE, HANDOVER_TO_SHIPPER",
		summary)
}

func TestSummarizeResponses_SenderOrderAndGrouping(t *testing.T) {
	responses := []transport.AgentResponse{
		{SenderName: "Shipper", Text: "CUSTOMS_CLEARANCE"},
		{SenderName: "Accountant", Text: "PAYMENT_COMPLETE"},
		{SenderName: "Shipper", Text: "HANDOVER_TO_SHIPPER"},
	}

	summary := SummarizeResponses(responses)

	// Updates group per sender in first-seen order.
	assert.Equal(t,
		"Order status updates: Shipper: CUSTOMS_CLEARANCE, HANDOVER_TO_SHIPPER | Accountant: PAYMENT_COMPLETE",
		summary)
}

func TestSummarizeResponses_DeliveredWholeWordOnly(t *testing.T) {
	// "undelivered" must not match; "delivered" as its own word must.
	summary := SummarizeResponses([]transport.AgentResponse{
		{SenderName: "Shipper", Text: "package undelivered_status CUSTOMS_CLEARANCE"},
	})
	assert.NotContains(t, summary, "(final)")

	summary = SummarizeResponses([]transport.AgentResponse{
		{SenderName: "Shipper", Text: "The order has been Delivered."},
	})
	assert.Contains(t, summary, " (final)")
	assert.Contains(t, summary, "Shipper: The order has been Delivered.")
}

func TestSummarizeResponses_UnknownSender(t *testing.T) {
	summary := SummarizeResponses([]transport.AgentResponse{
		{SenderName: "", Text: "CUSTOMS_CLEARANCE"},
	})
	assert.Equal(t, "Order status updates: Unknown: CUSTOMS_CLEARANCE", summary)
}

func TestSummarizeResponses_Deterministic(t *testing.T) {
	responses := []transport.AgentResponse{
		{SenderName: "Farm", Text: "HANDOVER_TO_SHIPPER"},
		{SenderName: "Shipper", Text: "CUSTOMS_CLEARANCE"},
		{SenderName: "Shipper", Text: "DELIVERED"},
	}
	first := SummarizeResponses(responses)
	require.NotEmpty(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SummarizeResponses(responses))
	}
}
