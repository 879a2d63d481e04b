package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for huma's SSE loop.
// Events are dropped when ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeAll forwards every event type into ch and returns one function
// that removes all subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[CaptureStartedEvent](bus, ch),
		SubscribeToChannel[CaptureStoppedEvent](bus, ch),
		SubscribeToChannel[CaptureErrorEvent](bus, ch),
		SubscribeToChannel[WaveformSavedEvent](bus, ch),
		SubscribeToChannel[WaveformSentEvent](bus, ch),
		SubscribeToChannel[WaveformSendFailedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
