package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type TranslationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.TranslationRun) (*types.TranslationRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TranslationRun, error)
	ListByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.TranslationRun, error)
	Finish(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.RunStatus, completed, errored, incomplete, staleDrops int) error
}

type translationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranslationRunRepo(db *gorm.DB, baseLog *logger.Logger) TranslationRunRepo {
	repoLog := baseLog.With("repo", "TranslationRunRepo")
	return &translationRunRepo{db: db, log: repoLog}
}

func (r *translationRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.TranslationRun) (*types.TranslationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *translationRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TranslationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.TranslationRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *translationRunRepo) ListByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.TranslationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TranslationRun
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *translationRunRepo) Finish(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.RunStatus, completed, errored, incomplete, staleDrops int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.TranslationRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            status,
			"completed_blocks":  completed,
			"errored_blocks":    errored,
			"incomplete_blocks": incomplete,
			"stale_drops":       staleDrops,
			"finished_at":       &now,
		}).Error
}
