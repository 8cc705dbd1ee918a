package logistics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFarmTransition(t *testing.T) {
	next, ok := FarmTransition("Status: RECEIVED_ORDER")
	assert.True(t, ok)
	assert.Equal(t, StatusHandoverToShipper, next)

	_, ok = FarmTransition("CUSTOMS_CLEARANCE")
	assert.False(t, ok)
}

func TestShipperTransition(t *testing.T) {
	next, ok := ShipperTransition("HANDOVER_TO_SHIPPER")
	assert.True(t, ok)
	assert.Equal(t, StatusCustomsClearance, next)

	next, ok = ShipperTransition("PAYMENT_COMPLETE")
	assert.True(t, ok)
	assert.Equal(t, StatusDelivered, next)

	_, ok = ShipperTransition("RECEIVED_ORDER")
	assert.False(t, ok)
}

func TestAccountantTransition(t *testing.T) {
	next, ok := AccountantTransition("CUSTOMS_CLEARANCE")
	assert.True(t, ok)
	assert.Equal(t, StatusPaymentComplete, next)

	_, ok = AccountantTransition("DELIVERED")
	assert.False(t, ok)
}

func TestReplyActionable(t *testing.T) {
	assert.Equal(t, "HANDOVER_TO_SHIPPER", Farm().Reply("RECEIVED_ORDER"))
	assert.Equal(t, "DELIVERED", Shipper().Reply("PAYMENT_COMPLETE"))
}

func TestReplyIdleContainsIdleToken(t *testing.T) {
	for _, a := range []Agent{Farm(), Shipper(), Accountant()} {
		reply := a.Reply("no status here")
		assert.Contains(t, reply, "IDLE", "idle notice must carry the IDLE token for %s", a.Name)
	}
}

// Transitions must be total: arbitrary input never panics and idle replies
// always carry the IDLE token.
func TestTransitionsTotal(t *testing.T) {
	agents := []Agent{Farm(), Shipper(), Accountant()}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		for _, a := range agents {
			next, ok := a.Transition(text)
			if ok {
				assert.NotEqual(t, StatusUnknown, next)
			}
			reply := a.Reply(text)
			if !ok {
				assert.True(t, strings.Contains(reply, "IDLE"))
			}
		}
	})
}
