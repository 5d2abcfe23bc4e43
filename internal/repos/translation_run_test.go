package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/types"
)

func TestTranslationRunRepoLifecycle(t *testing.T) {
	db := testDatabase(t)
	tx := testTx(t, db)
	ctx := context.Background()
	repo := NewTranslationRunRepo(db, testLogger(t))

	sessionID := uuid.New()
	doc := seedDocument(t, ctx, tx, sessionID)

	run := &types.TranslationRun{
		ID:          uuid.New(),
		DocumentID:  doc.ID,
		SessionID:   sessionID,
		Status:      types.RunStatusRunning,
		TargetLang:  "es",
		Profile:     "openai-default",
		TotalBlocks: 5,
	}
	if _, err := repo.Create(ctx, tx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got, err := repo.GetByID(ctx, tx, run.ID); err != nil || got.Status != types.RunStatusRunning {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got, err := repo.ListByDocumentID(ctx, tx, doc.ID); err != nil || len(got) != 1 {
		t.Fatalf("ListByDocumentID: len=%d err=%v", len(got), err)
	}

	if err := repo.Finish(ctx, tx, run.ID, types.RunStatusFinished, 4, 1, 0, 2); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := repo.GetByID(ctx, tx, run.ID)
	if err != nil {
		t.Fatalf("GetByID after finish: %v", err)
	}
	if got.Status != types.RunStatusFinished || got.CompletedBlocks != 4 || got.ErroredBlocks != 1 || got.StaleDrops != 2 {
		t.Fatalf("finished run: %+v", got)
	}
	if got.FinishedAt == nil {
		t.Fatalf("FinishedAt not set")
	}
}
