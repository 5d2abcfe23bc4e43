package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/highlight"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/sse"
)

// DocumentSync bundles the live, in-memory state for one open document: the
// translation state store and the cross-pane highlight coordinator. One
// exists per open document; it is discarded when the document is deleted or
// the session loads a new one.
type DocumentSync struct {
	DocumentID uuid.UUID
	Store      *docsync.Store
	Highlight  *highlight.Coordinator

	mu        sync.Mutex
	runCancel context.CancelFunc
	runID     uuid.UUID
}

// TryBeginRun registers cancel for an exclusive run slot. Returns false if a
// run is already active for this document.
func (d *DocumentSync) TryBeginRun(runID uuid.UUID, cancel context.CancelFunc) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runCancel != nil {
		return false
	}
	d.runCancel = cancel
	d.runID = runID
	return true
}

func (d *DocumentSync) EndRun() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runCancel = nil
	d.runID = uuid.Nil
}

// CancelRun stops the active run, if any. Already-applied deltas stay.
func (d *DocumentSync) CancelRun() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runCancel == nil {
		return false
	}
	d.runCancel()
	return true
}

func (d *DocumentSync) ActiveRunID() (uuid.UUID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runCancel == nil {
		return uuid.Nil, false
	}
	return d.runID, true
}

// SyncRegistry owns the DocumentSync instances for all currently open
// documents in this process.
type SyncRegistry struct {
	mu       sync.Mutex
	log      *logger.Logger
	emitter  SSEEmitter
	entries  map[uuid.UUID]*DocumentSync
	debounce time.Duration
}

func NewSyncRegistry(log *logger.Logger, emitter SSEEmitter, debounce time.Duration) *SyncRegistry {
	return &SyncRegistry{
		log:      log.With("service", "SyncRegistry"),
		emitter:  emitter,
		entries:  make(map[uuid.UUID]*DocumentSync),
		debounce: debounce,
	}
}

// Get returns the live state for a document, if it is open.
func (r *SyncRegistry) Get(documentID uuid.UUID) (*DocumentSync, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[documentID]
	return e, ok
}

// GetOrCreate opens a document's live state. The highlight coordinator
// broadcasts active-block changes on the document channel so both panes
// converge on one highlighted block.
func (r *SyncRegistry) GetOrCreate(documentID uuid.UUID) *DocumentSync {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[documentID]; ok {
		return e
	}
	entry := &DocumentSync{
		DocumentID: documentID,
		Store:      docsync.NewStore(r.log),
	}
	entry.Highlight = highlight.NewCoordinator(r.log, r.debounce, func(blockID uuid.UUID, active bool) {
		data := map[string]any{"active": active}
		if active {
			data["block_id"] = blockID
		}
		r.emitter.Emit(context.Background(), sse.SSEMessage{
			Channel: sse.DocumentChannel(documentID),
			Event:   sse.SSEEventHighlightChanged,
			Data:    data,
		})
	})
	r.entries[documentID] = entry
	return entry
}

// Discard drops a document's live state, canceling any active run and
// stopping the highlight coordinator.
func (r *SyncRegistry) Discard(documentID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.entries[documentID]
	if ok {
		delete(r.entries, documentID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	entry.CancelRun()
	entry.Highlight.Stop()
	entry.Store.Reset()
	r.log.Debug("Discarded document sync state", "document_id", documentID)
}
