// Package messaging defines the event contracts published by the storefront.
package messaging

import (
	"context"
)

// CheckoutCompletedSubject is the JetStream subject for completed checkouts.
const CheckoutCompletedSubject = "orders.checkout.completed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops events. Wired in when no NATS connection is configured
// so checkout still works in a standalone deployment.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error {
	return nil
}
