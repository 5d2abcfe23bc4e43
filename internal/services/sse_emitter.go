package services

import (
	"context"

	"github.com/lingopane/lingopane-backend/internal/sse"
)

// SSEEmitter is where services send realtime events. A single-instance
// deploy emits straight to the local hub; with redis configured, events are
// also mirrored onto the bus so peer instances can fan them out to their
// own connected panes.
type SSEEmitter interface {
	Emit(ctx context.Context, msg sse.SSEMessage)
}

type HubEmitter struct{ Hub *sse.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// FanoutEmitter broadcasts locally and publishes the same message to the
// bus. The bus stamps each published message with this instance's origin,
// and the forwarder drops messages carrying its own origin, so nothing
// loops back through the local hub twice.
type FanoutEmitter struct {
	Hub *sse.SSEHub
	Bus SSEBus
}

func (e *FanoutEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.Hub.Broadcast(msg)
	_ = e.Bus.Publish(ctx, msg)
}
