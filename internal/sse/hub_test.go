package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubDeliversDocumentEventsInOrder(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := DocumentChannel(uuid.New())

	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventBlockChunk, Data: map[string]any{"text": "Hola"}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventBlockCompleted, Data: map[string]any{"text": "Hola, mundo."}})

	first := recvMessage(t, client.Outbound, time.Second)
	second := recvMessage(t, client.Outbound, time.Second)
	if first.Event != SSEEventBlockChunk {
		t.Fatalf("first event: want=%s got=%s", SSEEventBlockChunk, first.Event)
	}
	if second.Event != SSEEventBlockCompleted {
		t.Fatalf("second event: want=%s got=%s", SSEEventBlockCompleted, second.Event)
	}
}

func TestSSEHubIsolatesDocumentChannels(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	chanA := DocumentChannel(uuid.New())
	chanB := DocumentChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, chanA)
	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, chanB)

	hub.Broadcast(SSEMessage{Channel: chanA, Event: SSEEventHighlightChanged})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Event != SSEEventHighlightChanged {
		t.Fatalf("clientA event: got=%s", got.Event)
	}
	select {
	case leaked := <-clientB.Outbound:
		t.Fatalf("clientB received foreign-document event: %+v", leaked)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubReconnectReceivesNewEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := DocumentChannel(uuid.New())
	sessionID := uuid.New()

	clientA := hub.NewSSEClient(sessionID)
	hub.AddChannel(clientA, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRunStarted})
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventRunStarted {
		t.Fatalf("pre-disconnect event: got=%s", got.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(sessionID)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRunFinished})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventRunFinished {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubDropsWhenOutboundFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := DocumentChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	// Fill the buffer plus some; the overflow must not block Broadcast.
	for i := 0; i < cap(client.Outbound)+8; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventBlockChunk, Data: map[string]any{"seq": i}})
	}
	for i := 0; i < cap(client.Outbound); i++ {
		recvMessage(t, client.Outbound, time.Second)
	}
	select {
	case extra := <-client.Outbound:
		t.Fatalf("expected overflow to be dropped, got %+v", extra)
	default:
	}
}

func TestSSEHubRemoveChannelStopsDelivery(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := DocumentChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)
	hub.RemoveChannel(client, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventDocumentReady})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
