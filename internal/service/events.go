package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
)

// EventType identifies a lifecycle or configuration change
type EventType string

const (
	EventRequestSubmitted  EventType = "request.submitted"
	EventRequestActivated  EventType = "request.activated"
	EventRequestRejected   EventType = "request.rejected"
	EventRequestTerminated EventType = "request.terminated"
	EventCapacityChanged   EventType = "capacity.changed"
	EventStatusChanged     EventType = "status.changed"
)

// Event is published to subscribers after a successful state change
type Event struct {
	Type    EventType `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// RequestEvent is the payload for request lifecycle events. Credentials are
// deliberately not carried; the stream is readable without authentication.
type RequestEvent struct {
	ID     string               `json:"id"`
	Game   models.Game          `json:"game"`
	Status models.RequestStatus `json:"status,omitempty"`
}

// Hub fans events out to subscribers. Publishing never blocks: a subscriber
// that falls behind its buffer misses events, and consumers are expected to
// refetch state rather than replay the stream.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an event hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// function that must be called when done
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Emit publishes an event to all subscribers
func (h *Hub) Emit(eventType EventType, payload any) {
	evt := Event{
		Type:    eventType,
		Time:    time.Now().UTC(),
		Payload: payload,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.logger.Warn("Dropping event for slow subscriber", "type", eventType)
		}
	}
}

// StartLogNotifier runs a subscriber that logs activations and terminations
// until the context is cancelled. It stands in for the notification
// collaborator (email/Discord); delivery itself is out of scope.
func StartLogNotifier(ctx context.Context, hub *Hub, logger *slog.Logger) {
	events, cancel := hub.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				switch evt.Type {
				case EventRequestActivated, EventRequestRejected, EventRequestTerminated:
					logger.Info("Notification", "type", evt.Type, "payload", evt.Payload)
				}
			}
		}
	}()
}
