package order

import (
	"time"

	"github.com/orderdesk/orderdesk/internal/entity"
)

// Event types published to the order event topic.
const (
	EventOrderCreated        = "order.created"
	EventOrderUpdated        = "order.updated"
	EventOrderDeleted        = "order.deleted"
	EventOrdersStatusChanged = "orders.status_changed"
	EventOrdersDuplicated    = "orders.duplicated"
	EventOrdersDeleted       = "orders.deleted"
)

// Event is the envelope emitted for every order mutation. Consumers use
// OrderIDs to invalidate derived state.
type Event struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	OrderIDs   []int64       `json:"order_ids,omitempty"`
	Status     entity.Status `json:"status,omitempty"`
}
