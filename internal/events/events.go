package events

import (
	"encoding/json"
	"sync"
	"time"

	"valetcore/internal/models"
)

const (
	EventBookingCreated  = "booking_created"
	EventStatusChanged   = "booking_status_changed"
	EventProgressUpdated = "booking_progress_updated"
	EventBookingArchived = "booking_archived"
	EventSyncCompleted   = "sync_completed"
)

// BookingEventPayload is the booking snapshot pushed to tracking subscribers.
type BookingEventPayload struct {
	BookingID    string        `json:"booking_id"`
	CustomerName string        `json:"customer_name,omitempty"`
	Status       models.Status `json:"status"`
	Progress     int           `json:"progress"`
	Date         time.Time     `json:"date"`
	ChangedBy    string        `json:"changed_by,omitempty"`
}

// SyncEventPayload reports the outcome of a reconciliation pass.
type SyncEventPayload struct {
	Pushed   int       `json:"pushed"`
	Failed   int       `json:"failed"`
	Manual   bool      `json:"manual"`
	Finished time.Time `json:"finished"`
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub. It is the single push channel behind
// the customer tracking view; polling remains the coarse fallback.
type EventBus struct {
	subscribers map[string][]*subscription
	mu          sync.RWMutex
}

type subscription struct {
	handler EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]*subscription)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], &subscription{handler: handler})
}

// SubscribeWithCancel registers a handler and returns a function that removes
// it again. Subscribers tied to a client connection must cancel on disconnect
// so the bus does not accumulate dead handlers.
func (b *EventBus) SubscribeWithCancel(eventType string, handler EventHandler) func() {
	sub := &subscription{handler: handler}

	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s == sub {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type]))
	for _, s := range b.subscribers[event.Type] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
