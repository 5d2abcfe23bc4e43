package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/sse"
)

// Requires a reachable redis named by TEST_REDIS_ADDR; skipped otherwise.
func newTestBus(t *testing.T, channel string) SSEBus {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis bus test")
	}
	t.Setenv("REDIS_ADDR", addr)
	t.Setenv("REDIS_CHANNEL", channel)
	bus, err := NewRedisSSEBus(mustTestLogger(t))
	if err != nil {
		t.Fatalf("NewRedisSSEBus: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisSSEBusFansOutToPeersNotSelf(t *testing.T) {
	channel := "sse-test-" + uuid.NewString()
	busA := newTestBus(t, channel)
	busB := newTestBus(t, channel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fromA := make(chan sse.SSEMessage, 4)
	fromB := make(chan sse.SSEMessage, 4)
	if err := busA.StartForwarder(ctx, func(m sse.SSEMessage) { fromA <- m }); err != nil {
		t.Fatalf("StartForwarder A: %v", err)
	}
	if err := busB.StartForwarder(ctx, func(m sse.SSEMessage) { fromB <- m }); err != nil {
		t.Fatalf("StartForwarder B: %v", err)
	}

	docChannel := sse.DocumentChannel(uuid.New())
	if err := busA.Publish(ctx, sse.SSEMessage{Channel: docChannel, Event: sse.SSEEventBlockCompleted, Data: map[string]any{"text": "Hola, mundo."}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-fromB:
		if got.Channel != docChannel || got.Event != sse.SSEEventBlockCompleted {
			t.Fatalf("peer forwarder message: %+v", got)
		}
		if got.Origin == "" {
			t.Fatalf("published message carries no origin")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("peer forwarder never received the published message")
	}

	// The publisher's own forwarder must drop the message; it already went
	// through the local hub when emitted.
	select {
	case got := <-fromA:
		t.Fatalf("publisher forwarder looped its own message back: %+v", got)
	case <-time.After(300 * time.Millisecond):
	}
}
