package logistics

import "strings"

// Status is one state of the fixed order workflow.
type Status string

const (
	StatusReceivedOrder     Status = "RECEIVED_ORDER"
	StatusHandoverToShipper Status = "HANDOVER_TO_SHIPPER"
	StatusCustomsClearance  Status = "CUSTOMS_CLEARANCE"
	StatusPaymentComplete   Status = "PAYMENT_COMPLETE"
	StatusDelivered         Status = "DELIVERED"
	StatusUnknown           Status = "STATUS_UNKNOWN"
)

// statusOrder is the lattice order. ExtractStatus matches tokens in this
// order, so a text containing two canonical tokens resolves to the earliest
// one in the workflow rather than depending on map iteration.
var statusOrder = []Status{
	StatusReceivedOrder,
	StatusHandoverToShipper,
	StatusCustomsClearance,
	StatusPaymentComplete,
	StatusDelivered,
	StatusUnknown,
}

// String returns the canonical uppercase token.
func (s Status) String() string { return string(s) }

// Terminal reports whether the status ends the workflow.
func (s Status) Terminal() bool { return s == StatusDelivered }

// ExtractStatus extracts an order status from free text. Matching is
// substring-based on the canonical uppercase token after upper-casing the
// input, so "HANDOVER_TO_SHIPPER_DONE" still matches HANDOVER_TO_SHIPPER.
// Peer agents append status tokens loosely to natural language and this
// must keep working.
//
// ExtractStatus is total: it returns StatusUnknown for non-matching text,
// never an absent value.
func ExtractStatus(text string) Status {
	upper := strings.ToUpper(text)
	for _, s := range statusOrder {
		if strings.Contains(upper, string(s)) {
			return s
		}
	}
	return StatusUnknown
}
