// Package events contains concrete event payloads.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/google/uuid"
)

// CheckoutCompletedEvent is published when a customer completes the demo
// checkout flow. TotalPrice carries the cart total at the moment of checkout.
type CheckoutCompletedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     int       `json:"user_id"`
	TotalItems int       `json:"total_items"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e CheckoutCompletedEvent) Subject() string {
	return messaging.CheckoutCompletedSubject
}

func (e CheckoutCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
