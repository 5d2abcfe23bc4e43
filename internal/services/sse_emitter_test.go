package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/sse"
)

type recordingBus struct {
	published chan sse.SSEMessage
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: make(chan sse.SSEMessage, 16)}
}

func (b *recordingBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	b.published <- msg
	return nil
}

func (b *recordingBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func recvEmitted(t *testing.T, ch <-chan sse.SSEMessage) sse.SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
		return sse.SSEMessage{}
	}
}

func TestFanoutEmitterDeliversLocallyAndPublishes(t *testing.T) {
	hub := sse.NewSSEHub(mustTestLogger(t))
	bus := newRecordingBus()
	emitter := &FanoutEmitter{Hub: hub, Bus: bus}

	channel := sse.DocumentChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	emitter.Emit(context.Background(), sse.SSEMessage{Channel: channel, Event: sse.SSEEventBlockChunk, Data: map[string]any{"chunk": "Hola"}})

	local := recvEmitted(t, client.Outbound)
	if local.Event != sse.SSEEventBlockChunk {
		t.Fatalf("local event: got=%s", local.Event)
	}
	mirrored := recvEmitted(t, bus.published)
	if mirrored.Channel != channel || mirrored.Event != sse.SSEEventBlockChunk {
		t.Fatalf("published message: %+v", mirrored)
	}
}

func TestHubEmitterStaysLocal(t *testing.T) {
	hub := sse.NewSSEHub(mustTestLogger(t))
	emitter := &HubEmitter{Hub: hub}

	channel := sse.DocumentChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	emitter.Emit(context.Background(), sse.SSEMessage{Channel: channel, Event: sse.SSEEventRunStarted})

	if got := recvEmitted(t, client.Outbound); got.Event != sse.SSEEventRunStarted {
		t.Fatalf("event: got=%s", got.Event)
	}
}
