// Package reader streams card events from a network-attached badge reader.
//
// The reader speaks a line protocol over TCP: "CARD:<uid>" while a badge sits
// on the pad (repeated every poll cycle) and "REMOVED" when it is lifted.
// This package turns that chatter into state-change events.
package reader

// EventType classifies reader events.
type EventType string

const (
	// EventDetected fires once when a card lands on the pad.
	EventDetected EventType = "detected"
	// EventRemoved fires once when the card is lifted.
	EventRemoved EventType = "removed"
	// EventConnecting fires when the source starts a connection attempt.
	EventConnecting EventType = "connecting"
	// EventError fires on a connection or protocol failure.
	EventError EventType = "error"
)

// Event is a single reader state change.
type Event struct {
	Type   EventType
	CardID string // set for EventDetected
	Err    error  // set for EventError
}

// Source emits reader events. Implementations own their connection and
// deliver events until Stop is called.
type Source interface {
	// Events returns the event channel. Closed after Stop.
	Events() <-chan Event
	// Start begins delivering events.
	Start()
	// Stop tears the source down and closes the event channel.
	Stop()
}
