package logistics

import "strings"

// Card identifies a remote peer: its display name and the transport topic
// it listens on. The registries below are process-wide and immutable after
// startup; no locking is needed because nothing mutates them.
type Card struct {
	Name  string
	Topic string
}

// Logistics peers the order broadcast is fanned out to.
var (
	ShipperCard    = Card{Name: "Shipper", Topic: "logistics.shipper"}
	FarmCard       = Card{Name: "Farm", Topic: "logistics.farm"}
	AccountantCard = Card{Name: "Accountant", Topic: "logistics.accountant"}
)

// BroadcastRecipients is the fixed recipient set for order creation.
func BroadcastRecipients() []Card {
	return []Card{ShipperCard, FarmCard, AccountantCard}
}

// Farm exchange peers, addressable individually for inventory and orders.
var (
	BrazilCard   = Card{Name: "Brazil", Topic: "farms.brazil"}
	ColombiaCard = Card{Name: "Colombia", Topic: "farms.colombia"}
	VietnamCard  = Card{Name: "Vietnam", Topic: "farms.vietnam"}
)

// FarmBroadcastTopic is the shared topic for all-farm inventory broadcasts.
const FarmBroadcastTopic = "farms.broadcast"

// FarmCards lists the exchange farms in registry order.
func FarmCards() []Card {
	return []Card{BrazilCard, ColombiaCard, VietnamCard}
}

// FarmCardFor maps a farm name to its card. Matching is case-insensitive
// and tolerant of surrounding text ("the brazil farm" resolves to Brazil).
// Returns false for unknown farms.
func FarmCardFor(farm string) (Card, bool) {
	f := strings.ToLower(strings.TrimSpace(farm))
	for _, card := range FarmCards() {
		if strings.Contains(f, strings.ToLower(card.Name)) {
			return card, true
		}
	}
	return Card{}, false
}
