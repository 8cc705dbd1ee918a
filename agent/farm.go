package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FarmResponder hosts an exchange farm: it quotes yield inventory, accepts
// direct orders, and answers order lookups. Orders live in memory; the farm
// is the system of record only for the lifetime of the process.
type FarmResponder struct {
	name      string
	inventory int

	mu     sync.Mutex
	orders map[string]string
}

// NewFarmResponder creates a farm with a starting yield inventory.
func NewFarmResponder(name string, inventory int) *FarmResponder {
	return &FarmResponder{
		name:      name,
		inventory: inventory,
		orders:    make(map[string]string),
	}
}

func (r *FarmResponder) Name() string { return r.name }

// Respond answers a directly addressed message: inventory quotes, order
// placement, and order lookups, keyed on the request phrasing.
func (r *FarmResponder) Respond(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "inventory"):
		return fmt.Sprintf("%d units of coffee available.", r.currentInventory())
	case strings.Contains(lower, "place an order"), strings.Contains(lower, "create an order"):
		return r.placeOrder(text)
	case strings.Contains(lower, "details of order"):
		return r.orderDetails(text)
	default:
		return fmt.Sprintf("%s farm here. I can quote yield inventory, take orders, and look up order details.", r.name)
	}
}

// React stays silent in group chats; farms answer only direct requests.
func (r *FarmResponder) React(string) (string, bool) {
	return "", false
}

func (r *FarmResponder) currentInventory() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inventory
}

func (r *FarmResponder) placeOrder(text string) string {
	id := "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	r.mu.Lock()
	r.orders[id] = strings.TrimSpace(text)
	r.mu.Unlock()
	return fmt.Sprintf("Order %s confirmed by %s.", id, r.name)
}

func (r *FarmResponder) orderDetails(text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	upper := strings.ToUpper(text)
	for id, detail := range r.orders {
		if strings.Contains(upper, id) {
			return fmt.Sprintf("Order %s: %s", id, detail)
		}
	}
	return "No order found with that ID."
}

var _ Responder = (*FarmResponder)(nil)
