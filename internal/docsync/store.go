package docsync

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// BlockState is a read-only snapshot of one block's current translation
// version. Snapshots are values; mutating one never touches the store.
type BlockState struct {
	BlockID      uuid.UUID               `json:"block_id"`
	Version      int                     `json:"version"`
	Status       types.TranslationStatus `json:"status"`
	Text         string                  `json:"text"`
	ErrorCode    string                  `json:"error_code,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

func (s BlockState) Terminal() bool {
	return s.Status == types.TranslationStatusComplete || s.Status == types.TranslationStatusError
}

type record struct {
	version      int
	status       types.TranslationStatus
	text         string
	errorCode    string
	errorMessage string
}

// Store is the single source of truth for per-block translation state within
// one document. It is written by exactly one ingest run at a time and read by
// SSE broadcasting and snapshot handlers, so reads take the shared lock.
type Store struct {
	mu           sync.RWMutex
	log          *logger.Logger
	initialized  bool
	order        []uuid.UUID
	blocks       map[uuid.UUID]*types.ContentBlock
	records      map[uuid.UUID]*record
	staleDrops   int
	ingestActive bool
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:     log.With("component", "DocSyncStore"),
		blocks:  make(map[uuid.UUID]*types.ContentBlock),
		records: make(map[uuid.UUID]*record),
	}
}

// Initialize seeds one pending version-1 record per block. The block
// sequence comes from extraction in document order; ids must be unique.
func (s *Store) Initialize(blocks []*types.ContentBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	seen := make(map[uuid.UUID]bool, len(blocks))
	for _, b := range blocks {
		if seen[b.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateBlockID, b.ID)
		}
		seen[b.ID] = true
	}
	for _, b := range blocks {
		s.order = append(s.order, b.ID)
		s.blocks[b.ID] = b
		s.records[b.ID] = &record{version: 1, status: types.TranslationStatusPending}
	}
	s.initialized = true
	return nil
}

// Reset discards all block and translation state so the store can be
// re-initialized, typically when the session loads a new document.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.order = nil
	s.blocks = make(map[uuid.UUID]*types.ContentBlock)
	s.records = make(map[uuid.UUID]*record)
	s.staleDrops = 0
}

// ApplyDelta appends a streamed chunk to the block's accumulating text.
// First delta for a version moves pending to streaming. Deltas for a
// superseded version return ErrStaleUpdate and leave state untouched.
func (s *Store) ApplyDelta(blockID uuid.UUID, version int, chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(blockID)
	if err != nil {
		return err
	}
	if version != r.version {
		s.staleDrops++
		return fmt.Errorf("%w: block=%s got=%d current=%d", ErrStaleUpdate, blockID, version, r.version)
	}
	switch r.status {
	case types.TranslationStatusPending:
		r.status = types.TranslationStatusStreaming
	case types.TranslationStatusStreaming:
	default:
		return fmt.Errorf("%w: block=%s version=%d status=%s", ErrTerminalVersion, blockID, version, r.status)
	}
	r.text += chunk
	return nil
}

// Complete freezes the version. A non-nil finalText replaces the accumulated
// chunks for providers that send an authoritative final payload. Completing
// an already-complete version of the same version number is a no-op.
func (s *Store) Complete(blockID uuid.UUID, version int, finalText *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(blockID)
	if err != nil {
		return err
	}
	if version != r.version {
		s.staleDrops++
		return fmt.Errorf("%w: block=%s got=%d current=%d", ErrStaleUpdate, blockID, version, r.version)
	}
	if r.status == types.TranslationStatusComplete {
		return nil
	}
	if r.status == types.TranslationStatusError {
		return fmt.Errorf("%w: block=%s version=%d status=%s", ErrTerminalVersion, blockID, version, r.status)
	}
	if finalText != nil {
		r.text = *finalText
	}
	r.status = types.TranslationStatusComplete
	return nil
}

// Fail puts the version into the terminal error state. The error is
// user-visible and block-scoped; other blocks are unaffected.
func (s *Store) Fail(blockID uuid.UUID, version int, code, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(blockID)
	if err != nil {
		return err
	}
	if version != r.version {
		s.staleDrops++
		return fmt.Errorf("%w: block=%s got=%d current=%d", ErrStaleUpdate, blockID, version, r.version)
	}
	if r.status == types.TranslationStatusComplete || r.status == types.TranslationStatusError {
		return fmt.Errorf("%w: block=%s version=%d status=%s", ErrTerminalVersion, blockID, version, r.status)
	}
	r.status = types.TranslationStatusError
	r.errorCode = code
	r.errorMessage = message
	return nil
}

// StartNewVersion begins a re-translation: bumps the version, clears text,
// resets status to pending. In-flight deltas tagged with the old version
// become stale and will be dropped.
func (s *Store) StartNewVersion(blockID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.record(blockID)
	if err != nil {
		return 0, err
	}
	r.version++
	r.status = types.TranslationStatusPending
	r.text = ""
	r.errorCode = ""
	r.errorMessage = ""
	return r.version, nil
}

// State returns the current snapshot for one block.
func (s *Store) State(blockID uuid.UUID) (BlockState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.record(blockID)
	if err != nil {
		return BlockState{}, err
	}
	return s.snapshotLocked(blockID, r), nil
}

// Snapshot returns per-block state in document order.
func (s *Store) Snapshot() []BlockState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]BlockState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.snapshotLocked(id, s.records[id]))
	}
	return out
}

// Blocks returns the document's blocks in extraction order.
func (s *Store) Blocks() []*types.ContentBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.ContentBlock, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.blocks[id])
	}
	return out
}

func (s *Store) Contains(blockID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[blockID]
	return ok
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// StaleDrops counts deltas dropped because their version had been
// superseded. Diagnostics only; drops are silent at the stream layer.
func (s *Store) StaleDrops() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleDrops
}

func (s *Store) snapshotLocked(id uuid.UUID, r *record) BlockState {
	return BlockState{
		BlockID:      id,
		Version:      r.version,
		Status:       r.status,
		Text:         r.text,
		ErrorCode:    r.errorCode,
		ErrorMessage: r.errorMessage,
	}
}

func (s *Store) record(blockID uuid.UUID) (*record, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	r, ok := s.records[blockID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	return r, nil
}

func (s *Store) beginIngest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.ingestActive {
		return ErrConcurrentIngest
	}
	s.ingestActive = true
	return nil
}

func (s *Store) endIngest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingestActive = false
}
