package websocket

import (
	"github.com/LupusDei/adjutant-sub008/internal/domain"
	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
)

// ClientSubscriber adapts a dashboard WebSocket client to the hub's
// Subscriber contract: hub events are serialized and handed to the
// client's write pump.
type ClientSubscriber struct {
	client *Client
}

func NewClientSubscriber(client *Client) *ClientSubscriber {
	return &ClientSubscriber{client: client}
}

func (s *ClientSubscriber) ID() string {
	return s.client.ID()
}

// Send serializes the event and queues it on the client. A client
// whose connection has closed reports ErrSubscriberClosed so the hub
// drops it.
func (s *ClientSubscriber) Send(event events.Event) error {
	s.client.mu.Lock()
	closed := s.client.closed
	s.client.mu.Unlock()

	if closed {
		return domain.ErrSubscriberClosed
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	s.client.Send(data)
	return nil
}

func (s *ClientSubscriber) Close() error {
	s.client.Close()
	return nil
}

func (s *ClientSubscriber) Done() <-chan struct{} {
	return s.client.done
}
