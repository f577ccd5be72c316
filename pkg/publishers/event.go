package publishers

import (
	"time"

	"github.com/samvad-hq/checkout-connector/internal/domain"
)

// Order lifecycle actions carried by events.
const (
	ActionCreated = "created"
	ActionFetched = "fetched"
	ActionUpdated = "updated"
)

// Event represents the payload published downstream.
type Event struct {
	Action     string       `json:"action"`
	Order      domain.Order `json:"order"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewEvent constructs an Event for the given action + order.
func NewEvent(action string, order domain.Order) Event {
	return Event{
		Action:     action,
		Order:      order,
		OccurredAt: time.Now().UTC(),
	}
}
