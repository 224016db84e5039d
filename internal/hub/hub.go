// Package hub fans session events out to dashboard subscribers.
//
// Producers (the registry API handlers, the connector's output bridge,
// the state watcher) publish without knowing who is listening; each
// connected dashboard client is a subscriber, usually wrapped in a
// FilteredSubscriber so it only sees the sessions it watches.
package hub

import (
	"sync"

	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// broadcastBacklog bounds how many published events may queue while
// the fan-out loop is busy. Bursts beyond it are dropped, not blocked
// on: a slow dashboard must never stall pane output capture.
const broadcastBacklog = 256

// Hub delivers published events to every registered subscriber.
// Registration, removal and broadcast all flow through one loop
// goroutine; the mutex only guards the subscriber map for the
// synchronous SubscriberCount and Stop paths.
type Hub struct {
	subscribers map[string]ports.Subscriber

	broadcast  chan events.Event
	register   chan ports.Subscriber
	unregister chan string

	mu      sync.RWMutex
	done    chan struct{}
	running bool
}

// New creates a stopped Hub; call Start before publishing.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, broadcastBacklog),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
}

// Start launches the fan-out loop. Starting a running hub is a no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	log.Debug().Msg("event hub started")

	go h.run()
	return nil
}

// Stop ends the loop and closes every subscriber. Stopping a stopped
// hub is a no-op.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	close(h.done)

	h.mu.Lock()
	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.mu.Lock()
			if sub, ok := h.subscribers[id]; ok {
				_ = sub.Close()
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// deliver sends one event to all subscribers. A subscriber whose Send
// fails is queued for removal; its failure never blocks delivery to
// the rest.
func (h *Hub) deliver(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("dropping subscriber: send failed")
			go func(subID string) {
				select {
				case h.unregister <- subID:
				default:
				}
			}(id)
		}
	}
}

// Publish queues an event for fan-out. Never blocks: when the backlog
// is full the event is dropped with a warning.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast backlog full")
	}
}

// Subscribe registers a subscriber for all subsequent events.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
	}
}

// Unsubscribe removes and closes the subscriber with the given id.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
