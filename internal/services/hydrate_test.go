package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/docsync"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type fakeBlockRepo struct {
	repos.ContentBlockRepo
	blocks []*types.ContentBlock
}

func (f *fakeBlockRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.ContentBlock, error) {
	return f.blocks, nil
}

type fakeRecordRepo struct {
	repos.TranslationRecordRepo
	records []*types.TranslationRecord
}

func (f *fakeRecordRepo) GetCurrentByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.TranslationRecord, error) {
	return f.records, nil
}

func TestHydrateStoreReplaysPersistedTerminalState(t *testing.T) {
	log := mustTestLogger(t)
	documentID := uuid.New()

	blocks := []*types.ContentBlock{
		{ID: uuid.New(), DocumentID: documentID, Position: 0, Type: types.BlockTypeParagraph, Text: "a"},
		{ID: uuid.New(), DocumentID: documentID, Position: 1, Type: types.BlockTypeParagraph, Text: "b"},
		{ID: uuid.New(), DocumentID: documentID, Position: 2, Type: types.BlockTypeParagraph, Text: "c"},
	}
	records := []*types.TranslationRecord{
		{BlockID: blocks[0].ID, DocumentID: documentID, Version: 1, Status: types.TranslationStatusComplete, Text: "une"},
		{BlockID: blocks[1].ID, DocumentID: documentID, Version: 3, Status: types.TranslationStatusError, ErrorCode: "PROVIDER_HTTP", ErrorMessage: "502"},
	}

	store := docsync.NewStore(log)
	err := hydrateStore(context.Background(), log, store, documentID,
		&fakeBlockRepo{blocks: blocks}, &fakeRecordRepo{records: records})
	if err != nil {
		t.Fatalf("hydrateStore: %v", err)
	}

	s0, _ := store.State(blocks[0].ID)
	if s0.Status != types.TranslationStatusComplete || s0.Text != "une" || s0.Version != 1 {
		t.Fatalf("block 0: %+v", s0)
	}
	s1, _ := store.State(blocks[1].ID)
	if s1.Status != types.TranslationStatusError || s1.Version != 3 || s1.ErrorCode != "PROVIDER_HTTP" {
		t.Fatalf("block 1: %+v", s1)
	}
	// Never-translated block starts pending at version 1.
	s2, _ := store.State(blocks[2].ID)
	if s2.Status != types.TranslationStatusPending || s2.Version != 1 {
		t.Fatalf("block 2: %+v", s2)
	}
}

func TestHydrateStoreIsIdempotentForOpenStores(t *testing.T) {
	log := mustTestLogger(t)
	documentID := uuid.New()
	blocks := []*types.ContentBlock{
		{ID: uuid.New(), DocumentID: documentID, Position: 0, Type: types.BlockTypeParagraph, Text: "a"},
	}

	store := docsync.NewStore(log)
	if err := store.Initialize(blocks); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := store.ApplyDelta(blocks[0].ID, 1, "live text"); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	// A store that is already live must not be clobbered by a re-hydrate.
	err := hydrateStore(context.Background(), log, store, documentID,
		&fakeBlockRepo{blocks: blocks}, &fakeRecordRepo{})
	if err != nil {
		t.Fatalf("hydrateStore: %v", err)
	}
	state, _ := store.State(blocks[0].ID)
	if state.Text != "live text" || state.Status != types.TranslationStatusStreaming {
		t.Fatalf("live state clobbered: %+v", state)
	}
}
