package services

import (
  "context"
  "testing"

  "github.com/lulai-platform/lulai-backend/internal/sse"
)

func newLocalBus(t *testing.T) (ProgressBus, *sse.SSEHub) {
  t.Helper()
  t.Setenv("REDIS_ADDR", "")
  hub := sse.NewSSEHub(newTestLogger(t))
  bus, err := NewProgressBus(newTestLogger(t), hub)
  if err != nil {
    t.Fatalf("NewProgressBus: %v", err)
  }
  return bus, hub
}

func TestProgressBusHistoryKeepsOrder(t *testing.T) {
  bus, _ := newLocalBus(t)
  ctx := context.Background()

  statuses := []string{"Fetching product data...", "Processing and storing data...", "Integration complete!"}
  for _, s := range statuses {
    bus.Publish(ctx, "lulai_store_1", s)
  }

  got := bus.History(ctx, "lulai_store_1")
  if len(got) != len(statuses) {
    t.Fatalf("history length = %d, want %d (%v)", len(got), len(statuses), got)
  }
  for i, s := range statuses {
    if got[i] != s {
      t.Fatalf("history[%d] = %q, want %q", i, got[i], s)
    }
  }

  if other := bus.History(ctx, "other_store"); other != nil {
    t.Fatalf("unreported tenant history = %v, want nil", other)
  }
}

func TestProgressBusHistoryTrimsOldest(t *testing.T) {
  bus, _ := newLocalBus(t)
  ctx := context.Background()

  bus.Publish(ctx, "lulai_store_1", "dropped")
  for i := 0; i < progressHistoryLimit; i++ {
    bus.Publish(ctx, "lulai_store_1", "kept")
  }

  got := bus.History(ctx, "lulai_store_1")
  if len(got) != progressHistoryLimit {
    t.Fatalf("history length = %d, want %d", len(got), progressHistoryLimit)
  }
  for i, s := range got {
    if s != "kept" {
      t.Fatalf("history[%d] = %q, oldest entry not trimmed", i, s)
    }
  }
}

func TestProgressBusBroadcastsToSubscribers(t *testing.T) {
  bus, hub := newLocalBus(t)
  ctx := context.Background()

  client := hub.NewSSEClient("lulai_store_1")
  hub.AddChannel(client, ProgressChannel("lulai_store_1"))
  defer hub.CloseClient(client)

  bus.Publish(ctx, "lulai_store_1", "Fetching product data...")
  bus.Publish(ctx, "lulai_store_1", "Integration complete!")

  first := <-client.Outbound
  second := <-client.Outbound
  data, ok := first.Data.(map[string]string)
  if !ok || data["status"] != "Fetching product data..." {
    t.Fatalf("first broadcast = %#v", first.Data)
  }
  data, ok = second.Data.(map[string]string)
  if !ok || data["status"] != "Integration complete!" {
    t.Fatalf("second broadcast = %#v", second.Data)
  }
}
