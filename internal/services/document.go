package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/apierr"
	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/sse"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// DocumentView is the two-pane read model: blocks in document order on the
// left, current translation state per block on the right.
type DocumentView struct {
	Document *types.Document       `json:"document"`
	Blocks   []*types.ContentBlock `json:"blocks"`
	States   []docsync.BlockState  `json:"states"`
}

type DocumentService interface {
	CreateFromURL(ctx context.Context, sessionID uuid.UUID, sourceURL, targetLang string) (*types.Document, error)
	GetView(ctx context.Context, sessionID, documentID uuid.UUID) (*DocumentView, error)
	List(ctx context.Context, sessionID uuid.UUID) ([]*types.Document, error)
	Delete(ctx context.Context, sessionID, documentID uuid.UUID) error
}

type documentService struct {
	db         *gorm.DB
	log        *logger.Logger
	docRepo    repos.DocumentRepo
	blockRepo  repos.ContentBlockRepo
	recordRepo repos.TranslationRecordRepo
	extraction ExtractionClient
	registry   *SyncRegistry
	emitter    SSEEmitter
}

func NewDocumentService(
	db *gorm.DB,
	log *logger.Logger,
	docRepo repos.DocumentRepo,
	blockRepo repos.ContentBlockRepo,
	recordRepo repos.TranslationRecordRepo,
	extraction ExtractionClient,
	registry *SyncRegistry,
	emitter SSEEmitter,
) DocumentService {
	return &documentService{
		db:         db,
		log:        log.With("service", "DocumentService"),
		docRepo:    docRepo,
		blockRepo:  blockRepo,
		recordRepo: recordRepo,
		extraction: extraction,
		registry:   registry,
		emitter:    emitter,
	}
}

func (s *documentService) CreateFromURL(ctx context.Context, sessionID uuid.UUID, sourceURL, targetLang string) (*types.Document, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if _, err := url.ParseRequestURI(sourceURL); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "INVALID_URL", fmt.Errorf("invalid source url: %w", err))
	}

	extracted, err := s.extraction.Extract(ctx, sourceURL)
	if err != nil {
		return nil, apierr.New(http.StatusBadGateway, "EXTRACTION_FAILED", err)
	}
	if len(extracted.Blocks) == 0 {
		return nil, apierr.New(http.StatusUnprocessableEntity, "EMPTY_DOCUMENT", fmt.Errorf("no translatable content at %s", sourceURL))
	}

	doc := &types.Document{
		SessionID:  sessionID,
		SourceURL:  sourceURL,
		Title:      extracted.Title,
		SourceLang: extracted.SourceLang,
		TargetLang: targetLang,
		Status:     types.DocumentStatusReady,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.docRepo.Create(ctx, tx, doc); err != nil {
			return err
		}
		for _, b := range extracted.Blocks {
			b.DocumentID = doc.ID
		}
		if _, err := s.blockRepo.Create(ctx, tx, extracted.Blocks); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.registry.GetOrCreate(doc.ID)
	if err := entry.Store.Initialize(extracted.Blocks); err != nil {
		// Duplicate ids abort the load; discard the partial state.
		s.registry.Discard(doc.ID)
		if errors.Is(err, docsync.ErrDuplicateBlockID) {
			return nil, apierr.New(http.StatusConflict, "DUPLICATE_BLOCK_ID", err)
		}
		return nil, err
	}

	s.emitter.Emit(ctx, sse.SSEMessage{
		Channel: sse.DocumentChannel(doc.ID),
		Event:   sse.SSEEventDocumentReady,
		Data:    map[string]any{"document_id": doc.ID, "blocks": len(extracted.Blocks)},
	})
	s.log.Info("Created document", "document_id", doc.ID, "session_id", sessionID, "blocks", len(extracted.Blocks))
	return doc, nil
}

func (s *documentService) GetView(ctx context.Context, sessionID, documentID uuid.UUID) (*DocumentView, error) {
	doc, err := s.ownedDocument(ctx, sessionID, documentID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blockRepo.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}

	entry := s.registry.GetOrCreate(documentID)
	if !entry.Store.Initialized() {
		if err := hydrateStore(ctx, s.log, entry.Store, documentID, s.blockRepo, s.recordRepo); err != nil {
			return nil, err
		}
	}

	return &DocumentView{
		Document: doc,
		Blocks:   blocks,
		States:   entry.Store.Snapshot(),
	}, nil
}

func (s *documentService) List(ctx context.Context, sessionID uuid.UUID) ([]*types.Document, error) {
	return s.docRepo.ListBySessionID(ctx, nil, sessionID)
}

func (s *documentService) Delete(ctx context.Context, sessionID, documentID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, sessionID, documentID); err != nil {
		return err
	}
	s.registry.Discard(documentID)
	return s.docRepo.Delete(ctx, nil, documentID)
}

func (s *documentService) ownedDocument(ctx context.Context, sessionID, documentID uuid.UUID) (*types.Document, error) {
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
