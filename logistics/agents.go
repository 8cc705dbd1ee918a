package logistics

import "fmt"

// TransitionFunc advances an order one status hop. It extracts the current
// status from the inbound text and returns the next status plus whether the
// agent acted. A false actionable flag means the agent stays idle for this
// message.
type TransitionFunc func(text string) (next Status, actionable bool)

// Agent pairs a peer name with its transition function.
type Agent struct {
	Name       string
	Transition TransitionFunc
}

// FarmTransition: RECEIVED_ORDER -> HANDOVER_TO_SHIPPER; all else idle.
func FarmTransition(text string) (Status, bool) {
	if ExtractStatus(text) == StatusReceivedOrder {
		return StatusHandoverToShipper, true
	}
	return StatusUnknown, false
}

// ShipperTransition: HANDOVER_TO_SHIPPER -> CUSTOMS_CLEARANCE and
// PAYMENT_COMPLETE -> DELIVERED; all else idle.
func ShipperTransition(text string) (Status, bool) {
	switch ExtractStatus(text) {
	case StatusHandoverToShipper:
		return StatusCustomsClearance, true
	case StatusPaymentComplete:
		return StatusDelivered, true
	}
	return StatusUnknown, false
}

// AccountantTransition: CUSTOMS_CLEARANCE -> PAYMENT_COMPLETE; all else idle.
func AccountantTransition(text string) (Status, bool) {
	if ExtractStatus(text) == StatusCustomsClearance {
		return StatusPaymentComplete, true
	}
	return StatusUnknown, false
}

// Farm returns the farm peer agent.
func Farm() Agent { return Agent{Name: "Farm", Transition: FarmTransition} }

// Shipper returns the shipper peer agent.
func Shipper() Agent { return Agent{Name: "Shipper", Transition: ShipperTransition} }

// Accountant returns the accountant peer agent.
func Accountant() Agent { return Agent{Name: "Accountant", Transition: AccountantTransition} }

// Reply renders the agent's reply text for an inbound message: the next
// status token when the agent acted, otherwise an idle notice. The idle
// notice must contain the substring "IDLE" so the response aggregator can
// filter it out.
func (a Agent) Reply(text string) string {
	next, ok := a.Transition(text)
	if !ok {
		return fmt.Sprintf("No %s handling required. %s remains IDLE. No further action required.", a.Name, a.Name)
	}
	return string(next)
}
