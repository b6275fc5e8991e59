// Package bus is the publish/subscribe fabric between coordinator
// instances and the external move workers. Delivery is at-most-once:
// consumers that cannot use a message log and drop it.
package bus

import "context"

// Bus publishes raw payloads to named subjects.
type Bus interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	// Subscribe starts a subscription immediately; messages arrive on the
	// returned subscription's channel until Stop.
	Subscribe(ctx context.Context, subject string) (Subscription, error)
}

// Subscription is a stoppable stream of payloads. C is closed after Stop
// drains, so range loops terminate cleanly.
type Subscription interface {
	C() <-chan []byte
	Stop() error
}
