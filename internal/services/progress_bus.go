package services

import (
  "context"
  "encoding/json"
  "os"
  "strings"
  "sync"
  "time"

  goredis "github.com/redis/go-redis/v9"

  "github.com/lulai-platform/lulai-backend/internal/logger"
  "github.com/lulai-platform/lulai-backend/internal/sse"
  "github.com/lulai-platform/lulai-backend/internal/utils"
)

// ProgressBus fans ingestion status lines out to subscribed SSE clients.
// With REDIS_ADDR set it publishes through redis pub/sub so every instance
// behind the load balancer sees the update; without it, updates stay local.
type ProgressBus interface {
  Publish(ctx context.Context, tenantKey string, status string)
  // History returns the recorded status lines for the tenant, oldest
  // first, or nil when no ingestion has reported yet. Clients connecting
  // mid-run replay it before receiving live updates.
  History(ctx context.Context, tenantKey string) []string
  StartForwarder(ctx context.Context) error
  Close() error
}

// ProgressChannel is the SSE channel name for a tenant's ingestion stream.
func ProgressChannel(tenantKey string) string {
  return "ingest:" + utils.SanitizeTenantKey(tenantKey)
}

type progressBus struct {
  log *logger.Logger
  hub *sse.SSEHub
  rdb *goredis.Client

  pubsubChannel string

  mu      sync.RWMutex
  history map[string][]string
}

const (
  progressStatusTTL = time.Hour
  // Kept below the SSE outbound buffer so a replay never blocks.
  progressHistoryLimit = 8
)

func NewProgressBus(log *logger.Logger, hub *sse.SSEHub) (ProgressBus, error) {
  bus := &progressBus{
    log:           log.With("service", "ProgressBus"),
    hub:           hub,
    pubsubChannel: "ingest-progress",
    history:       make(map[string][]string),
  }

  addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
  if addr == "" {
    bus.log.Info("REDIS_ADDR not set; ingestion progress stays in-process")
    return bus, nil
  }

  rdb := goredis.NewClient(&goredis.Options{
    Addr:        addr,
    DialTimeout: 5 * time.Second,
  })
  ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
  defer cancel()
  if err := rdb.Ping(ctx).Err(); err != nil {
    _ = rdb.Close()
    return nil, err
  }
  bus.rdb = rdb
  return bus, nil
}

type progressPayload struct {
  Channel string `json:"channel"`
  Status  string `json:"status"`
}

func (b *progressBus) Publish(ctx context.Context, tenantKey string, status string) {
  channel := ProgressChannel(tenantKey)

  b.mu.Lock()
  lines := append(b.history[channel], status)
  if len(lines) > progressHistoryLimit {
    lines = lines[len(lines)-progressHistoryLimit:]
  }
  b.history[channel] = lines
  b.mu.Unlock()

  if b.rdb != nil {
    key := historyKey(channel)
    pipe := b.rdb.Pipeline()
    pipe.RPush(ctx, key, status)
    pipe.LTrim(ctx, key, -progressHistoryLimit, -1)
    pipe.Expire(ctx, key, progressStatusTTL)
    if _, err := pipe.Exec(ctx); err != nil {
      b.log.Warn("failed to persist progress history", "channel", channel, "error", err)
    }
    raw, err := json.Marshal(progressPayload{Channel: channel, Status: status})
    if err == nil {
      if err := b.rdb.Publish(ctx, b.pubsubChannel, raw).Err(); err != nil {
        b.log.Warn("failed to publish progress", "channel", channel, "error", err)
      }
      return
    }
    b.log.Warn("failed to marshal progress payload", "error", err)
  }

  b.broadcast(channel, status)
}

func historyKey(channel string) string {
  return "ingest:hist:" + channel
}

func (b *progressBus) broadcast(channel string, status string) {
  b.hub.Broadcast(sse.SSEMessage{
    Channel: channel,
    Event:   sse.SSEEventIngestionProgress,
    Data:    map[string]string{"status": status},
  })
}

func (b *progressBus) History(ctx context.Context, tenantKey string) []string {
  channel := ProgressChannel(tenantKey)

  if b.rdb != nil {
    // Redis holds the cross-instance record; the local map only has what
    // this process published itself.
    lines, err := b.rdb.LRange(ctx, historyKey(channel), 0, -1).Result()
    if err == nil {
      return lines
    }
    b.log.Warn("failed to load progress history", "channel", channel, "error", err)
  }

  b.mu.RLock()
  defer b.mu.RUnlock()
  lines := b.history[channel]
  out := make([]string, len(lines))
  copy(out, lines)
  if len(out) == 0 {
    return nil
  }
  return out
}

func (b *progressBus) StartForwarder(ctx context.Context) error {
  if b.rdb == nil {
    return nil
  }

  sub := b.rdb.Subscribe(ctx, b.pubsubChannel)
  if _, err := sub.Receive(ctx); err != nil {
    _ = sub.Close()
    return err
  }

  go func() {
    ch := sub.Channel()
    for {
      select {
      case <-ctx.Done():
        _ = sub.Close()
        return
      case m, ok := <-ch:
        if !ok || m == nil {
          _ = sub.Close()
          return
        }
        var payload progressPayload
        if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
          b.log.Warn("bad progress payload", "error", err)
          continue
        }
        b.broadcast(payload.Channel, payload.Status)
      }
    }
  }()

  return nil
}

func (b *progressBus) Close() error {
  if b.rdb == nil {
    return nil
  }
  return b.rdb.Close()
}
