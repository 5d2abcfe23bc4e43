package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/types"
)

func TestProviderCredentialRepo(t *testing.T) {
	db := testDatabase(t)
	tx := testTx(t, db)
	ctx := context.Background()
	repo := NewProviderCredentialRepo(db, testLogger(t))

	session1 := uuid.New()
	session2 := uuid.New()

	cred1 := &types.ProviderCredential{
		ID:         uuid.New(),
		SessionID:  session1,
		Provider:   "openai",
		Label:      "personal",
		Ciphertext: []byte("sealed-1"),
	}
	cred2 := &types.ProviderCredential{
		ID:         uuid.New(),
		SessionID:  session1,
		Provider:   "groq",
		Label:      "work",
		Ciphertext: []byte("sealed-2"),
	}
	cred3 := &types.ProviderCredential{
		ID:         uuid.New(),
		SessionID:  session2,
		Provider:   "openai",
		Label:      "personal",
		Ciphertext: []byte("sealed-3"),
	}
	for _, c := range []*types.ProviderCredential{cred1, cred2, cred3} {
		if _, err := repo.Create(ctx, tx, c); err != nil {
			t.Fatalf("Create(%s): %v", c.Label, err)
		}
	}

	if got, err := repo.GetByID(ctx, tx, cred1.ID); err != nil || string(got.Ciphertext) != "sealed-1" {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got, err := repo.ListBySessionID(ctx, tx, session1); err != nil || len(got) != 2 {
		t.Fatalf("ListBySessionID: len=%d err=%v", len(got), err)
	}

	if err := repo.Delete(ctx, tx, cred2.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, tx, cred2.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found after delete, got %v", err)
	}
}
