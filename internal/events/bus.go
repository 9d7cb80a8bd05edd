// ABOUTME: Event bus fanning session updates and commands out to subscribers
// ABOUTME: Wraps the kelindar/event dispatcher
package events

import (
	"github.com/Resonate-Protocol/audiosession/pkg/session"
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case SessionUpdate:
		event.Publish(b.dispatcher, e)
	case Command:
		event.Publish(b.dispatcher, e)
	case ConfigReloaded:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function; the handler type
// selects the events it receives. Returns an unsubscribe function.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SessionUpdate):
		return event.Subscribe(b.dispatcher, h)
	case func(Command):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloaded):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Notify publishes session updates; handlers run on the dispatcher's
// goroutines, never on the caller's
func (b *Bus) Notify(update session.Update) {
	b.Publish(SessionUpdate{Update: update})
}
