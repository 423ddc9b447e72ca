package shared

import "context"

// EventHandler reacts to domain events delivered by the bus or the outbox relay.
// Returning an error leaves the outbox entry eligible for retry.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants; empty means all.
	EventTypes() []string
}

// EventPublisher hands events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an EventPublisher that also accepts subscriptions. An explicit
// eventTypes list overrides the handler's own EventTypes.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
}
