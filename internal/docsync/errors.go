package docsync

import "errors"

var (
	// ErrDuplicateBlockID aborts document load; two blocks in one document
	// can never share an id.
	ErrDuplicateBlockID = errors.New("duplicate block id in document")

	// ErrAlreadyInitialized means Initialize was called twice without a
	// Reset in between. That is a caller contract violation, not a
	// recoverable condition.
	ErrAlreadyInitialized = errors.New("store already initialized for this document")

	ErrNotInitialized = errors.New("store not initialized")

	// ErrUnknownBlock is soft at the stream layer: events referencing a
	// block the document does not contain are dropped, not fatal.
	ErrUnknownBlock = errors.New("unknown block id")

	// ErrStaleUpdate marks a delta tagged with a version older than the
	// block's current version. Stale deltas are dropped and counted.
	ErrStaleUpdate = errors.New("stale update for superseded version")

	// ErrTerminalVersion marks a mutation against a version that already
	// reached complete or error.
	ErrTerminalVersion = errors.New("version is terminal")

	// ErrConcurrentIngest is returned when a second ingest run is started
	// against a store that already has an active one. Interleaving two
	// event streams would break the monotonic text guarantee.
	ErrConcurrentIngest = errors.New("ingest already active for this document")
)
