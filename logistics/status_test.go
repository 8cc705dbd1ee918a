package logistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtractStatusCanonicalTokens(t *testing.T) {
	for _, s := range statusOrder {
		assert.Equal(t, s, ExtractStatus(string(s)), "canonical token should extract itself")
	}
}

func TestExtractStatusEmpty(t *testing.T) {
	assert.Equal(t, StatusUnknown, ExtractStatus(""))
}

func TestExtractStatusSubstring(t *testing.T) {
	// Substring semantics: tokens embedded in surrounding text must match.
	assert.Equal(t, StatusHandoverToShipper, ExtractStatus("HANDOVER_TO_SHIPPER_DONE"))
	assert.Equal(t, StatusReceivedOrder, ExtractStatus("Create an order with price 10 and quantity 5. Status: RECEIVED_ORDER"))
	assert.Equal(t, StatusDelivered, ExtractStatus("the package was delivered yesterday"))
}

func TestExtractStatusCaseFolding(t *testing.T) {
	assert.Equal(t, StatusCustomsClearance, ExtractStatus("customs_clearance in progress"))
}

func TestExtractStatusNoMatch(t *testing.T) {
	assert.Equal(t, StatusUnknown, ExtractStatus("nothing interesting here"))
}

func TestExtractStatusTieBreakLatticeOrder(t *testing.T) {
	// Two canonical tokens in one text resolve to the earliest lattice state.
	got := ExtractStatus("DELIVERED after RECEIVED_ORDER")
	assert.Equal(t, StatusReceivedOrder, got)
}

func TestExtractStatusTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		got := ExtractStatus(text)
		assert.Contains(t, statusOrder, got, "result must always be a lattice member")
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.False(t, StatusPaymentComplete.Terminal())
	assert.False(t, StatusUnknown.Terminal())
}
