package sse

import (
  "context"
  "encoding/json"
  "fmt"

  "github.com/redis/go-redis/v9"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/utils"
)

const busChannel = "notelet:sse"

// Bus relays hub broadcasts between instances over redis pub/sub. When
// REDIS_ADDR is unset the hub runs purely in-process and no bus is created.
type Bus struct {
  rdb *redis.Client
  log *logger.Logger
}

func NewBusFromEnv(log *logger.Logger) (*Bus, error) {
  addr := utils.GetEnv("REDIS_ADDR", "", log)
  if addr == "" {
    return nil, nil
  }
  rdb := redis.NewClient(&redis.Options{
    Addr:     addr,
    Password: utils.GetEnv("REDIS_PASSWORD", "", log),
    DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
  })
  if err := rdb.Ping(context.Background()).Err(); err != nil {
    return nil, fmt.Errorf("Failed to ping redis: %w", err)
  }
  return &Bus{rdb: rdb, log: log.With("component", "SSEBus")}, nil
}

func (b *Bus) Publish(ctx context.Context, msg SSEMessage) error {
  payload, err := json.Marshal(msg)
  if err != nil {
    return fmt.Errorf("Failed to marshal SSE message: %w", err)
  }
  if err := b.rdb.Publish(ctx, busChannel, payload).Err(); err != nil {
    return fmt.Errorf("Failed to publish SSE message: %w", err)
  }
  return nil
}

// Run subscribes to the shared channel and forwards every message into the
// local hub. Blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context, hub *SSEHub) {
  sub := b.rdb.Subscribe(ctx, busChannel)
  defer sub.Close()

  ch := sub.Channel()
  for {
    select {
    case <-ctx.Done():
      return
    case raw, ok := <-ch:
      if !ok {
        return
      }
      var msg SSEMessage
      if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
        b.log.Warn("Failed to decode SSE bus message", "error", err)
        continue
      }
      hub.Broadcast(msg)
    }
  }
}

func (b *Bus) Close() error {
  return b.rdb.Close()
}
