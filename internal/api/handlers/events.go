package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
)

// EventsHandler pushes lifecycle, capacity and system-status events over a
// WebSocket. It replaces the landing page's periodic polling of slots and
// the maintenance flag: subscribers receive a status snapshot on connect and
// change events afterwards, and refetch /api/v1/status if they ever miss one.
type EventsHandler struct {
	lifecycle *service.LifecycleService
	events    *service.Hub
	logger    *slog.Logger
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(lifecycle *service.LifecycleService, events *service.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		lifecycle: lifecycle,
		events:    events,
		logger:    logger,
	}
}

// Stream handles GET /api/v1/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// In production, configure InsecureSkipVerify: false and proper OriginPatterns
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.logger.InfoContext(r.Context(), "Event stream connection established", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client messages so we notice a disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	if err := h.sendSnapshot(ctx, conn); err != nil {
		h.logger.WarnContext(ctx, "Failed to send initial status snapshot", "error", err)
		return
	}

	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(r.Context(), "Event stream connection closed", "remote_addr", r.RemoteAddr)
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to marshal event", "type", evt.Type, "error", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				if ctx.Err() == nil {
					h.logger.InfoContext(ctx, "Client disconnected or write error", "error", err)
				}
				return
			}
		}
	}
}

// sendSnapshot pushes the current system status so clients do not need an
// extra fetch on connect
func (h *EventsHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn) error {
	status, err := h.lifecycle.Status(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(service.Event{
		Type:    "status.snapshot",
		Time:    time.Now().UTC(),
		Payload: status,
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
