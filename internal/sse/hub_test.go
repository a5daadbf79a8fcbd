package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/notelet/notelet-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewSSEHub(log)
}

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()

	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	hub.Broadcast(SSEMessage{
		Channel: UserChannel(userID),
		Event:   SSEEventUploadCompleted,
		Data:    map[string]any{"ok": true},
	})

	select {
	case msg := <-client.Outbound:
		if msg.Event != SSEEventUploadCompleted {
			t.Fatalf("event: want=%s got=%s", SSEEventUploadCompleted, msg.Event)
		}
	default:
		t.Fatalf("no message delivered")
	}
}

func TestHub_BroadcastIgnoresOtherChannels(t *testing.T) {
	hub := newTestHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "user:a")

	hub.Broadcast(SSEMessage{Channel: "user:b", Event: SSEEventNoteEnriched})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected delivery: %+v", msg)
	default:
	}
}

func TestHub_RemoveClientStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))
	hub.RemoveClient(client)

	hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventUploadFailed})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("delivery after removal: %+v", msg)
	default:
	}
}

func TestHub_FullBufferDropsMessage(t *testing.T) {
	hub := newTestHub(t)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventNoteEnriched})
	}

	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("buffered messages: want=%d got=%d", cap(client.Outbound), got)
	}
}
