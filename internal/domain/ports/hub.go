// Package ports defines the contracts between adjutant's core and its
// collaborators.
package ports

import (
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
)

// Subscriber receives session events from an EventHub. Implementations
// decide what delivery means: a dashboard WebSocket connection, a
// buffered channel in tests, a filter wrapping either.
type Subscriber interface {
	// ID uniquely identifies the subscriber within a hub.
	ID() string

	// Send delivers one event. It returns an error once the
	// subscriber can no longer accept events; the hub drops the
	// subscriber on the first failed Send.
	Send(event events.Event) error

	// Close releases the subscriber. Closing twice is safe.
	Close() error

	// Done is closed when the subscriber has been closed.
	Done() <-chan struct{}
}

// EventHub fans session events out to subscribers. Publish must never
// block the caller: producers include the pane output bridge, which
// cannot stall on a slow dashboard.
type EventHub interface {
	Start() error
	Stop() error

	// Publish queues an event for delivery to all subscribers.
	Publish(event events.Event)

	// Subscribe registers a subscriber for subsequent events.
	Subscribe(sub Subscriber)

	// Unsubscribe removes and closes the subscriber with the given id.
	Unsubscribe(id string)
}
