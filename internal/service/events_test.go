package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_SubscribeReceivesEvents(t *testing.T) {
	hub := NewHub(discardLogger())

	events, cancel := hub.Subscribe()
	defer cancel()

	hub.Emit(EventRequestSubmitted, RequestEvent{ID: "abc", Game: models.GameMinecraft, Status: models.StatusPending})

	select {
	case evt := <-events:
		assert.Equal(t, EventRequestSubmitted, evt.Type)
		payload, ok := evt.Payload.(RequestEvent)
		require.True(t, ok)
		assert.Equal(t, "abc", payload.ID)
		assert.False(t, evt.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	hub := NewHub(discardLogger())

	events, cancel := hub.Subscribe()
	cancel()

	// The channel is closed on cancel and further emits go nowhere
	hub.Emit(EventStatusChanged, nil)

	_, open := <-events
	assert.False(t, open)

	// Cancelling twice must not panic
	cancel()
}

func TestHub_EmitNeverBlocks(t *testing.T) {
	hub := NewHub(discardLogger())

	_, cancel := hub.Subscribe()
	defer cancel()

	// Exceed the subscriber buffer without anyone draining it
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Emit(EventCapacityChanged, nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on a slow subscriber")
	}
}

func TestHub_FansOutToAllSubscribers(t *testing.T) {
	hub := NewHub(discardLogger())

	first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	hub.Emit(EventRequestActivated, RequestEvent{ID: "abc"})

	for _, events := range []<-chan Event{first, second} {
		select {
		case evt := <-events:
			assert.Equal(t, EventRequestActivated, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestStartLogNotifier_StopsOnContextCancel(t *testing.T) {
	hub := NewHub(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	StartLogNotifier(ctx, hub, discardLogger())
	cancel()

	// After cancellation the notifier's subscription eventually goes away;
	// emits must remain safe either way.
	time.Sleep(10 * time.Millisecond)
	hub.Emit(EventRequestActivated, RequestEvent{ID: "abc"})
}
