package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type ProviderCredentialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cred *types.ProviderCredential) (*types.ProviderCredential, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProviderCredential, error)
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ProviderCredential, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type providerCredentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProviderCredentialRepo(db *gorm.DB, baseLog *logger.Logger) ProviderCredentialRepo {
	repoLog := baseLog.With("repo", "ProviderCredentialRepo")
	return &providerCredentialRepo{db: db, log: repoLog}
}

func (r *providerCredentialRepo) Create(ctx context.Context, tx *gorm.DB, cred *types.ProviderCredential) (*types.ProviderCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *providerCredentialRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProviderCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cred types.ProviderCredential
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *providerCredentialRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ProviderCredential, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ProviderCredential
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *providerCredentialRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ProviderCredential{}).Error
}
