package core

import (
	"context"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
)

// EventHandler consumes a domain event. It must not block for long; it runs
// on the publisher's goroutine.
type EventHandler func(ctx context.Context, event *model.Event)

// EventPublisher emits domain events. A returned error means the event did
// not reach the transport and the caller should treat the change as failed.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// EventSubscriber registers local event handlers. With no topics the handler
// receives every topic. The returned func removes the subscription.
type EventSubscriber interface {
	Subscribe(handler EventHandler, topics ...string) (unsubscribe func())
}

// EventBus is both sides of the broadcaster.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
