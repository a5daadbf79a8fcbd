package sse

import (
  "context"

  "github.com/google/uuid"
)

func UserChannel(userID uuid.UUID) string {
  return "user:" + userID.String()
}

// Broadcaster fans events out to the local hub, or through the redis bus
// when one is configured so every instance's hub sees them. A nil
// Broadcaster is a no-op, which keeps the services testable without SSE.
type Broadcaster struct {
  Hub *SSEHub
  Bus *Bus
}

func (b *Broadcaster) Send(ctx context.Context, userID uuid.UUID, event SSEEvent, data any) {
  if b == nil || b.Hub == nil {
    return
  }
  msg := SSEMessage{
    Channel: UserChannel(userID),
    Event:   event,
    Data:    data,
  }
  if b.Bus != nil {
    if err := b.Bus.Publish(ctx, msg); err == nil {
      return
    }
  }
  b.Hub.Broadcast(msg)
}
