package docsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/types"
)

func runIngest(t *testing.T, in *Ingestor, events <-chan Event, onApplied func(Applied)) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- in.Run(context.Background(), events, onApplied)
	}()
	return done
}

func waitErr(t *testing.T, done chan error, timeout time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for ingest to finish")
	}
	return nil
}

func TestIngestorAppliesStreamUntilClose(t *testing.T) {
	store, blocks := newInitializedStore(t, 2)
	a, b := blocks[0].ID, blocks[1].ID
	in := NewIngestor(mustTestLogger(t), store)

	var applied []Applied
	events := make(chan Event)
	done := runIngest(t, in, events, func(ap Applied) { applied = append(applied, ap) })

	events <- Event{BlockID: a, Version: 1, Kind: EventKindChunk, Payload: "bon"}
	events <- Event{BlockID: b, Version: 1, Kind: EventKindChunk, Payload: "sal"}
	events <- Event{BlockID: a, Version: 1, Kind: EventKindChunk, Payload: "jour"}
	events <- Event{BlockID: a, Version: 1, Kind: EventKindComplete}
	events <- Event{BlockID: b, Version: 1, Kind: EventKindError, Code: "PROVIDER_STREAM", Message: "connection reset"}
	close(events)

	if err := waitErr(t, done, time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(applied) != 5 {
		t.Fatalf("applied events: want=5 got=%d", len(applied))
	}

	aState, _ := store.State(a)
	if aState.Status != types.TranslationStatusComplete || aState.Text != "bonjour" {
		t.Fatalf("block a: status=%s text=%q", aState.Status, aState.Text)
	}
	bState, _ := store.State(b)
	if bState.Status != types.TranslationStatusError || bState.ErrorCode != "PROVIDER_STREAM" {
		t.Fatalf("block b: status=%s code=%s", bState.Status, bState.ErrorCode)
	}
}

func TestIngestorDropsUnknownBlockAndContinues(t *testing.T) {
	store, blocks := newInitializedStore(t, 1)
	known := blocks[0].ID
	in := NewIngestor(mustTestLogger(t), store)

	var applied []Applied
	events := make(chan Event)
	done := runIngest(t, in, events, func(ap Applied) { applied = append(applied, ap) })

	events <- Event{BlockID: uuid.New(), Version: 1, Kind: EventKindChunk, Payload: "ghost"}
	events <- Event{BlockID: known, Version: 1, Kind: EventKindChunk, Payload: "real"}
	close(events)

	if err := waitErr(t, done, time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(applied) != 1 || applied[0].State.Text != "real" {
		t.Fatalf("expected only the known-block event applied, got %d", len(applied))
	}
}

func TestIngestorDropsStaleEventsSilently(t *testing.T) {
	store, blocks := newInitializedStore(t, 1)
	id := blocks[0].ID
	in := NewIngestor(mustTestLogger(t), store)

	if _, err := store.StartNewVersion(id); err != nil {
		t.Fatalf("StartNewVersion: %v", err)
	}

	var applied []Applied
	events := make(chan Event)
	done := runIngest(t, in, events, func(ap Applied) { applied = append(applied, ap) })

	events <- Event{BlockID: id, Version: 1, Kind: EventKindChunk, Payload: "stale"}
	events <- Event{BlockID: id, Version: 2, Kind: EventKindChunk, Payload: "current"}
	close(events)

	if err := waitErr(t, done, time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(applied) != 1 || applied[0].State.Text != "current" {
		t.Fatalf("stale event leaked through: applied=%d", len(applied))
	}
	if store.StaleDrops() != 1 {
		t.Fatalf("stale drops: want=1 got=%d", store.StaleDrops())
	}
}

func TestIngestorStreamEndLeavesPendingBlocksResumable(t *testing.T) {
	store, blocks := newInitializedStore(t, 2)
	touched, untouched := blocks[0].ID, blocks[1].ID
	in := NewIngestor(mustTestLogger(t), store)

	events := make(chan Event)
	done := runIngest(t, in, events, nil)
	events <- Event{BlockID: touched, Version: 1, Kind: EventKindChunk, Payload: "half"}
	close(events)
	if err := waitErr(t, done, time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}

	touchedState, _ := store.State(touched)
	if touchedState.Status != types.TranslationStatusStreaming || touchedState.Text != "half" {
		t.Fatalf("touched block forced terminal: %+v", touchedState)
	}
	untouchedState, _ := store.State(untouched)
	if untouchedState.Status != types.TranslationStatusPending {
		t.Fatalf("untouched block forced terminal: %+v", untouchedState)
	}

	// The next run can pick up where this one stopped.
	events2 := make(chan Event)
	done2 := runIngest(t, in, events2, nil)
	events2 <- Event{BlockID: touched, Version: 1, Kind: EventKindChunk, Payload: "way"}
	events2 <- Event{BlockID: touched, Version: 1, Kind: EventKindComplete}
	close(events2)
	if err := waitErr(t, done2, time.Second); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	resumed, _ := store.State(touched)
	if resumed.Status != types.TranslationStatusComplete || resumed.Text != "halfway" {
		t.Fatalf("resumed block: status=%s text=%q", resumed.Status, resumed.Text)
	}
}

func TestIngestorCancellationKeepsAppliedState(t *testing.T) {
	store, blocks := newInitializedStore(t, 1)
	id := blocks[0].ID
	in := NewIngestor(mustTestLogger(t), store)

	ctx, cancel := context.WithCancel(context.Background())
	applied := make(chan Applied, 8)
	events := make(chan Event)
	done := make(chan error, 1)
	go func() {
		done <- in.Run(ctx, events, func(ap Applied) { applied <- ap })
	}()

	events <- Event{BlockID: id, Version: 1, Kind: EventKindChunk, Payload: "kept"}
	<-applied
	cancel()

	if err := waitErr(t, done, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// No rollback: the applied delta survives cancellation.
	state, _ := store.State(id)
	if state.Status != types.TranslationStatusStreaming || state.Text != "kept" {
		t.Fatalf("state after cancel: %+v", state)
	}
}

func TestIngestorRejectsConcurrentRuns(t *testing.T) {
	store, blocks := newInitializedStore(t, 1)
	in := NewIngestor(mustTestLogger(t), store)

	started := make(chan struct{})
	events := make(chan Event)
	done := runIngest(t, in, events, func(Applied) { close(started) })

	// Wait for the first run to hold the ingest slot.
	events <- Event{BlockID: blocks[0].ID, Version: 1, Kind: EventKindChunk, Payload: "x"}
	<-started

	if err := in.Run(context.Background(), make(chan Event), nil); !errors.Is(err, ErrConcurrentIngest) {
		t.Fatalf("expected ErrConcurrentIngest, got %v", err)
	}

	close(events)
	if err := waitErr(t, done, time.Second); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Once the first run ends its slot frees up.
	events2 := make(chan Event)
	done2 := runIngest(t, in, events2, nil)
	close(events2)
	if err := waitErr(t, done2, time.Second); err != nil {
		t.Fatalf("follow-up Run: %v", err)
	}
}
