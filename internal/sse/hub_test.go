package sse

import (
  "testing"

  "github.com/lulai-platform/lulai-backend/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger.New: %v", err)
  }
  return NewSSEHub(log)
}

func TestBroadcastReachesSubscribedClient(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("acme")
  hub.AddChannel(client, "ingest:acme")

  hub.Broadcast(SSEMessage{
    Channel: "ingest:acme",
    Event:   SSEEventIngestionProgress,
    Data:    map[string]string{"status": "Fetching product data..."},
  })

  select {
  case msg := <-client.Outbound:
    if msg.Event != SSEEventIngestionProgress {
      t.Fatalf("event = %q, want %q", msg.Event, SSEEventIngestionProgress)
    }
  default:
    t.Fatal("no message delivered")
  }
}

func TestBroadcastSkipsOtherChannels(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("acme")
  hub.AddChannel(client, "ingest:acme")

  hub.Broadcast(SSEMessage{Channel: "ingest:globex", Event: SSEEventIngestionProgress})

  select {
  case msg := <-client.Outbound:
    t.Fatalf("unexpected message on %q", msg.Channel)
  default:
  }
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("acme")
  hub.AddChannel(client, "ingest:acme")

  for i := 0; i < cap(client.Outbound)+5; i++ {
    hub.Broadcast(SSEMessage{Channel: "ingest:acme", Event: SSEEventIngestionProgress})
  }
  if got := len(client.Outbound); got != cap(client.Outbound) {
    t.Fatalf("len(Outbound) = %d, want %d", got, cap(client.Outbound))
  }
}

func TestRemoveClientStopsDelivery(t *testing.T) {
  hub := newTestHub(t)
  client := hub.NewSSEClient("acme")
  hub.AddChannel(client, "ingest:acme")
  hub.RemoveClient(client)

  hub.Broadcast(SSEMessage{Channel: "ingest:acme", Event: SSEEventIngestionProgress})

  select {
  case <-client.Outbound:
    t.Fatal("message delivered after removal")
  default:
  }
}
