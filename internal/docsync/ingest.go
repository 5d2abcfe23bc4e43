package docsync

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

type EventKind string

const (
	EventKindChunk    EventKind = "chunk"
	EventKindComplete EventKind = "complete"
	EventKindError    EventKind = "error"
)

// Event is one block-tagged translation update from the provider stream.
// The transport preserves order within a block; across blocks no ordering
// is assumed.
type Event struct {
	BlockID uuid.UUID
	Version int
	Kind    EventKind
	// Payload is the incremental chunk for chunk events. For complete
	// events a non-nil FinalText carries an authoritative full payload
	// replacing the accumulated chunks.
	Payload   string
	FinalText *string
	Code      string
	Message   string
}

// Applied reports the outcome of one event for observers.
type Applied struct {
	Event Event
	State BlockState
}

// Ingestor drains a translation event stream into a Store. At most one
// Ingestor run may be active per store; events are applied one at a time,
// so within a run no two deltas ever interleave.
type Ingestor struct {
	log   *logger.Logger
	store *Store
}

func NewIngestor(log *logger.Logger, store *Store) *Ingestor {
	return &Ingestor{
		log:   log.With("component", "Ingestor"),
		store: store,
	}
}

// Run consumes events until the channel closes or ctx is canceled. Block-
// local failures (unknown block, stale version, terminal version) are
// dropped and the stream continues; already-applied deltas are never rolled
// back. Blocks still pending or streaming when the stream ends are left
// as-is so a later run can resume them.
func (in *Ingestor) Run(ctx context.Context, events <-chan Event, onApplied func(Applied)) error {
	if err := in.store.beginIngest(); err != nil {
		return err
	}
	defer in.store.endIngest()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			in.apply(ev, onApplied)
		}
	}
}

func (in *Ingestor) apply(ev Event, onApplied func(Applied)) {
	var err error
	switch ev.Kind {
	case EventKindChunk:
		err = in.store.ApplyDelta(ev.BlockID, ev.Version, ev.Payload)
	case EventKindComplete:
		err = in.store.Complete(ev.BlockID, ev.Version, ev.FinalText)
	case EventKindError:
		err = in.store.Fail(ev.BlockID, ev.Version, ev.Code, ev.Message)
	default:
		in.log.Warn("Dropping event of unknown kind", "kind", ev.Kind, "block_id", ev.BlockID)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownBlock):
			in.log.Warn("Dropping event for unknown block", "block_id", ev.BlockID, "kind", ev.Kind)
		case errors.Is(err, ErrStaleUpdate):
			in.log.Debug("Dropping stale event", "block_id", ev.BlockID, "version", ev.Version)
		case errors.Is(err, ErrTerminalVersion):
			in.log.Debug("Dropping event for terminal version", "block_id", ev.BlockID, "version", ev.Version)
		default:
			in.log.Warn("Dropping unapplicable event", "block_id", ev.BlockID, "kind", ev.Kind, "error", err)
		}
		return
	}
	if onApplied != nil {
		state, stateErr := in.store.State(ev.BlockID)
		if stateErr != nil {
			return
		}
		onApplied(Applied{Event: ev, State: state})
	}
}
