package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/apierr"
	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/sse"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type StartRunInput struct {
	SessionID    uuid.UUID
	DocumentID   uuid.UUID
	CredentialID uuid.UUID
	Profile      string
	TargetLang   string
}

type RetranslateInput struct {
	SessionID    uuid.UUID
	DocumentID   uuid.UUID
	BlockID      uuid.UUID
	CredentialID uuid.UUID
	Profile      string
	TargetLang   string
}

type TranslationService interface {
	StartRun(ctx context.Context, input StartRunInput) (*types.TranslationRun, error)
	RetranslateBlock(ctx context.Context, input RetranslateInput) (int, error)
	CancelRun(ctx context.Context, sessionID, documentID uuid.UUID) error
	RunStatus(ctx context.Context, runID uuid.UUID) (*types.TranslationRun, error)
}

type translationService struct {
	db          *gorm.DB
	log         *logger.Logger
	docRepo     repos.DocumentRepo
	blockRepo   repos.ContentBlockRepo
	recordRepo  repos.TranslationRecordRepo
	runRepo     repos.TranslationRunRepo
	credentials CredentialService
	profiles    *ProfileRegistry
	translator  TranslatorClient
	registry    *SyncRegistry
	emitter     SSEEmitter

	maxConcurrentBlocks int
}

func NewTranslationService(
	db *gorm.DB,
	log *logger.Logger,
	docRepo repos.DocumentRepo,
	blockRepo repos.ContentBlockRepo,
	recordRepo repos.TranslationRecordRepo,
	runRepo repos.TranslationRunRepo,
	credentials CredentialService,
	profiles *ProfileRegistry,
	translator TranslatorClient,
	registry *SyncRegistry,
	emitter SSEEmitter,
	maxConcurrentBlocks int,
) TranslationService {
	if maxConcurrentBlocks <= 0 {
		maxConcurrentBlocks = 4
	}
	return &translationService{
		db:                  db,
		log:                 log.With("service", "TranslationService"),
		docRepo:             docRepo,
		blockRepo:           blockRepo,
		recordRepo:          recordRepo,
		runRepo:             runRepo,
		credentials:         credentials,
		profiles:            profiles,
		translator:          translator,
		registry:            registry,
		emitter:             emitter,
		maxConcurrentBlocks: maxConcurrentBlocks,
	}
}

// StartRun begins streaming translation of every non-terminal block in the
// document. Blocks stream concurrently up to a bound; each block's own
// events stay ordered because one goroutine owns one block end to end.
func (s *translationService) StartRun(ctx context.Context, input StartRunInput) (*types.TranslationRun, error) {
	doc, err := s.ownedDocument(ctx, input.SessionID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(input.Profile)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "UNKNOWN_PROFILE", err)
	}
	apiKey, err := s.credentials.Reveal(ctx, input.SessionID, input.CredentialID)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "CREDENTIAL_UNAVAILABLE", err)
	}
	targetLang := input.TargetLang
	if targetLang == "" {
		targetLang = doc.TargetLang
	}
	if targetLang == "" {
		return nil, apierr.New(http.StatusBadRequest, "MISSING_TARGET_LANG", fmt.Errorf("no target language on document or request"))
	}

	entry, err := s.openEntry(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	// Translate only blocks whose current version has not finished.
	var work []docsync.BlockState
	for _, st := range entry.Store.Snapshot() {
		if !st.Terminal() {
			work = append(work, st)
		}
	}
	if len(work) == 0 {
		return nil, apierr.New(http.StatusConflict, "NOTHING_TO_TRANSLATE", fmt.Errorf("all blocks already terminal"))
	}

	run := &types.TranslationRun{
		DocumentID:  input.DocumentID,
		SessionID:   input.SessionID,
		Status:      types.RunStatusRunning,
		TargetLang:  targetLang,
		Profile:     profile.Name,
		TotalBlocks: len(work),
	}
	if _, err := s.runRepo.Create(ctx, nil, run); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if !entry.TryBeginRun(run.ID, cancel) {
		cancel()
		_ = s.runRepo.Finish(ctx, nil, run.ID, types.RunStatusFailed, 0, 0, len(work), 0)
		return nil, apierr.New(http.StatusConflict, "RUN_IN_PROGRESS", docsync.ErrConcurrentIngest)
	}

	go s.executeRun(runCtx, entry, run, work, runParams{
		apiKey:     apiKey,
		profile:    profile,
		sourceLang: doc.SourceLang,
		targetLang: targetLang,
	})

	return run, nil
}

type runParams struct {
	apiKey     string
	profile    ModelProfile
	sourceLang string
	targetLang string
}

func (s *translationService) executeRun(ctx context.Context, entry *DocumentSync, run *types.TranslationRun, work []docsync.BlockState, params runParams) {
	defer entry.EndRun()
	log := s.log.With("run_id", run.ID, "document_id", run.DocumentID)

	channel := sse.DocumentChannel(run.DocumentID)
	s.emitter.Emit(context.Background(), sse.SSEMessage{
		Channel: channel,
		Event:   sse.SSEEventRunStarted,
		Data:    map[string]any{"run_id": run.ID, "total_blocks": run.TotalBlocks},
	})

	blocksByID := make(map[uuid.UUID]*types.ContentBlock)
	for _, b := range entry.Store.Blocks() {
		blocksByID[b.ID] = b
	}

	events := make(chan docsync.Event, 256)

	producers, producerCtx := errgroup.WithContext(ctx)
	producers.SetLimit(s.maxConcurrentBlocks)
	go func() {
		for _, st := range work {
			st := st
			producers.Go(func() error {
				s.translateBlock(producerCtx, events, blocksByID[st.BlockID], st.Version, params)
				return nil
			})
		}
		_ = producers.Wait()
		close(events)
	}()

	var completed, errored int
	ingestor := docsync.NewIngestor(s.log, entry.Store)
	err := ingestor.Run(ctx, events, func(applied docsync.Applied) {
		s.publishApplied(channel, run.DocumentID, applied)
		if applied.State.Terminal() && applied.State.Version == applied.Event.Version {
			if applied.State.Status == types.TranslationStatusComplete {
				completed++
			} else {
				errored++
			}
			s.persistTerminal(run.DocumentID, applied.State)
		}
	})

	status := types.RunStatusFinished
	if err != nil {
		// Drain remaining producer output so their goroutines can exit;
		// nothing else will read the channel.
		go func() {
			for range events {
			}
		}()
		if errors.Is(err, context.Canceled) {
			status = types.RunStatusCanceled
		} else {
			status = types.RunStatusFailed
			log.Error("Run failed", "error", err)
		}
	}

	incomplete := 0
	for _, st := range entry.Store.Snapshot() {
		if !st.Terminal() {
			incomplete++
		}
	}
	staleDrops := entry.Store.StaleDrops()

	persistCtx, cancelPersist := context.WithTimeout(context.Background(), httpPersistTimeout)
	defer cancelPersist()
	if err := s.runRepo.Finish(persistCtx, nil, run.ID, status, completed, errored, incomplete, staleDrops); err != nil {
		log.Warn("Failed to persist run result", "error", err)
	}

	s.emitter.Emit(context.Background(), sse.SSEMessage{
		Channel: channel,
		Event:   sse.SSEEventRunFinished,
		Data: map[string]any{
			"run_id":            run.ID,
			"status":            status,
			"completed_blocks":  completed,
			"errored_blocks":    errored,
			"incomplete_blocks": incomplete,
		},
	})
	log.Info("Run finished", "status", status, "completed", completed, "errored", errored, "incomplete", incomplete, "stale_drops", staleDrops)
}

// translateBlock streams one block's translation into the event channel.
// Chunk, then complete with the provider's full text as the authoritative
// payload; provider failures become block-scoped error events.
func (s *translationService) translateBlock(ctx context.Context, events chan<- docsync.Event, block *types.ContentBlock, version int, params runParams) {
	if block == nil {
		return
	}
	if block.Type == types.BlockTypeImage {
		// Images carry no translatable text; mirror the source reference.
		text := block.Text
		s.emit(ctx, events, docsync.Event{BlockID: block.ID, Version: version, Kind: docsync.EventKindComplete, FinalText: &text})
		return
	}

	full, err := s.translator.StreamTranslate(ctx, TranslateRequest{
		APIKey:     params.apiKey,
		Profile:    params.profile,
		Text:       block.Text,
		SourceLang: params.sourceLang,
		TargetLang: params.targetLang,
	}, func(chunk string) {
		s.emit(ctx, events, docsync.Event{BlockID: block.ID, Version: version, Kind: docsync.EventKindChunk, Payload: chunk})
	})
	if err != nil {
		var blockErr *BlockError
		if errors.As(err, &blockErr) {
			s.emit(ctx, events, docsync.Event{BlockID: block.ID, Version: version, Kind: docsync.EventKindError, Code: blockErr.Code, Message: blockErr.Message})
		} else {
			s.emit(ctx, events, docsync.Event{BlockID: block.ID, Version: version, Kind: docsync.EventKindError, Code: ErrCodeProviderStream, Message: err.Error()})
		}
		return
	}
	s.emit(ctx, events, docsync.Event{BlockID: block.ID, Version: version, Kind: docsync.EventKindComplete, FinalText: &full})
}

func (s *translationService) emit(ctx context.Context, events chan<- docsync.Event, ev docsync.Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (s *translationService) publishApplied(channel string, documentID uuid.UUID, applied docsync.Applied) {
	var event sse.SSEEvent
	data := map[string]any{
		"document_id": documentID,
		"block_id":    applied.State.BlockID,
		"version":     applied.State.Version,
	}
	switch applied.Event.Kind {
	case docsync.EventKindChunk:
		event = sse.SSEEventBlockChunk
		data["chunk"] = applied.Event.Payload
	case docsync.EventKindComplete:
		event = sse.SSEEventBlockCompleted
		data["text"] = applied.State.Text
	case docsync.EventKindError:
		event = sse.SSEEventBlockFailed
		data["error_code"] = applied.State.ErrorCode
		data["error_message"] = applied.State.ErrorMessage
	default:
		return
	}
	s.emitter.Emit(context.Background(), sse.SSEMessage{Channel: channel, Event: event, Data: data})
}

func (s *translationService) persistTerminal(documentID uuid.UUID, state docsync.BlockState) {
	ctx, cancel := context.WithTimeout(context.Background(), httpPersistTimeout)
	defer cancel()
	_, err := s.recordRepo.Upsert(ctx, nil, &types.TranslationRecord{
		DocumentID:   documentID,
		BlockID:      state.BlockID,
		Version:      state.Version,
		Status:       state.Status,
		Text:         state.Text,
		ErrorCode:    state.ErrorCode,
		ErrorMessage: state.ErrorMessage,
	})
	if err != nil {
		s.log.Warn("Failed to persist terminal translation", "block_id", state.BlockID, "version", state.Version, "error", err)
	}
}

// RetranslateBlock bumps the block to a fresh version and streams it through
// its own ingest run. A whole-document run in flight holds the ingest slot,
// so retranslation during a run is rejected instead of interleaving.
func (s *translationService) RetranslateBlock(ctx context.Context, input RetranslateInput) (int, error) {
	doc, err := s.ownedDocument(ctx, input.SessionID, input.DocumentID)
	if err != nil {
		return 0, err
	}
	profile, err := s.profiles.Get(input.Profile)
	if err != nil {
		return 0, apierr.New(http.StatusBadRequest, "UNKNOWN_PROFILE", err)
	}
	apiKey, err := s.credentials.Reveal(ctx, input.SessionID, input.CredentialID)
	if err != nil {
		return 0, apierr.New(http.StatusBadRequest, "CREDENTIAL_UNAVAILABLE", err)
	}
	entry, err := s.openEntry(ctx, input.DocumentID)
	if err != nil {
		return 0, err
	}
	if _, active := entry.ActiveRunID(); active {
		return 0, apierr.New(http.StatusConflict, "RUN_IN_PROGRESS", docsync.ErrConcurrentIngest)
	}

	newVersion, err := entry.Store.StartNewVersion(input.BlockID)
	if err != nil {
		if errors.Is(err, docsync.ErrUnknownBlock) {
			return 0, apierr.New(http.StatusNotFound, "BLOCK_NOT_FOUND", err)
		}
		return 0, err
	}
	s.emitter.Emit(ctx, sse.SSEMessage{
		Channel: sse.DocumentChannel(input.DocumentID),
		Event:   sse.SSEEventBlockRetranslated,
		Data:    map[string]any{"block_id": input.BlockID, "version": newVersion},
	})

	targetLang := input.TargetLang
	if targetLang == "" {
		targetLang = doc.TargetLang
	}

	run := &types.TranslationRun{
		DocumentID:  input.DocumentID,
		SessionID:   input.SessionID,
		Status:      types.RunStatusRunning,
		TargetLang:  targetLang,
		Profile:     profile.Name,
		TotalBlocks: 1,
	}
	if _, err := s.runRepo.Create(ctx, nil, run); err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if !entry.TryBeginRun(run.ID, cancel) {
		cancel()
		return 0, apierr.New(http.StatusConflict, "RUN_IN_PROGRESS", docsync.ErrConcurrentIngest)
	}

	work := []docsync.BlockState{{BlockID: input.BlockID, Version: newVersion}}
	go s.executeRun(runCtx, entry, run, work, runParams{
		apiKey:     apiKey,
		profile:    profile,
		sourceLang: doc.SourceLang,
		targetLang: targetLang,
	})

	return newVersion, nil
}

func (s *translationService) CancelRun(ctx context.Context, sessionID, documentID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, sessionID, documentID); err != nil {
		return err
	}
	entry, ok := s.registry.Get(documentID)
	if !ok {
		return apierr.New(http.StatusNotFound, "NO_ACTIVE_RUN", fmt.Errorf("document has no live state"))
	}
	if !entry.CancelRun() {
		return apierr.New(http.StatusNotFound, "NO_ACTIVE_RUN", fmt.Errorf("no run in progress"))
	}
	return nil
}

func (s *translationService) RunStatus(ctx context.Context, runID uuid.UUID) (*types.TranslationRun, error) {
	run, err := s.runRepo.GetByID(ctx, nil, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "RUN_NOT_FOUND", err)
		}
		return nil, err
	}
	return run, nil
}

func (s *translationService) ownedDocument(ctx context.Context, sessionID, documentID uuid.UUID) (*types.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "DOCUMENT_NOT_FOUND", err)
		}
		return nil, err
	}
	if doc.SessionID != sessionID {
		return nil, apierr.New(http.StatusForbidden, "FORBIDDEN", fmt.Errorf("document belongs to another session"))
	}
	return doc, nil
}

// openEntry loads a document's live state, rehydrating from the database
// when the process has restarted since the document was created.
func (s *translationService) openEntry(ctx context.Context, documentID uuid.UUID) (*DocumentSync, error) {
	entry := s.registry.GetOrCreate(documentID)
	if entry.Store.Initialized() {
		return entry, nil
	}
	if err := hydrateStore(ctx, s.log, entry.Store, documentID, s.blockRepo, s.recordRepo); err != nil {
		return nil, err
	}
	return entry, nil
}
