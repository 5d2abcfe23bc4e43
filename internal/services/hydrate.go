package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// Budget for fire-and-forget persistence done off the request path.
const httpPersistTimeout = 10 * time.Second

// hydrateStore rebuilds a document's in-memory translation state after a
// process restart: seed every block at version 1, then replay the highest
// persisted version per block to its terminal state.
func hydrateStore(
	ctx context.Context,
	log *logger.Logger,
	store *docsync.Store,
	documentID uuid.UUID,
	blockRepo repos.ContentBlockRepo,
	recordRepo repos.TranslationRecordRepo,
) error {
	blocks, err := blockRepo.GetByDocumentID(ctx, nil, documentID)
	if err != nil {
		return err
	}
	if err := store.Initialize(blocks); err != nil {
		if errors.Is(err, docsync.ErrAlreadyInitialized) {
			return nil
		}
		return err
	}
	records, err := recordRepo.GetCurrentByDocumentID(ctx, nil, documentID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		version := 1
		for version < rec.Version {
			v, err := store.StartNewVersion(rec.BlockID)
			if err != nil {
				log.Warn("Skipping persisted record for unknown block", "block_id", rec.BlockID)
				break
			}
			version = v
		}
		if version != rec.Version {
			continue
		}
		switch rec.Status {
		case types.TranslationStatusComplete:
			text := rec.Text
			_ = store.Complete(rec.BlockID, rec.Version, &text)
		case types.TranslationStatusError:
			_ = store.Fail(rec.BlockID, rec.Version, rec.ErrorCode, rec.ErrorMessage)
		}
	}
	return nil
}
