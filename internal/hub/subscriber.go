package hub

import (
	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
)

// ChannelSubscriber delivers events onto a buffered channel. The
// connector's output bridge uses one to pull session output events
// back out of the hub, and tests use it to observe fan-out without a
// WebSocket in the loop.
type ChannelSubscriber struct {
	id     string
	send   chan events.Event
	done   chan struct{}
	closed bool
}

func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues the event. A full channel counts as a dead subscriber:
// the receiver has stopped draining and the hub should drop it rather
// than let events pile up.
func (s *ChannelSubscriber) Send(event events.Event) error {
	if s.closed {
		return domain.ErrSubscriberClosed
	}

	select {
	case s.send <- event:
		return nil
	default:
		return domain.ErrSubscriberClosed
	}
}

func (s *ChannelSubscriber) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events is the receive side of the subscriber's channel.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}
