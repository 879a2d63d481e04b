package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(CaptureStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case CaptureStartedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStoppedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	case WaveformSavedEvent:
		event.Publish(b.dispatcher, e)
	case WaveformSentEvent:
		event.Publish(b.dispatcher, e)
	case WaveformSendFailedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its argument and returns
// the unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e CaptureErrorEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CaptureStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WaveformSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WaveformSentEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WaveformSendFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
