package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type TranslationRecordRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, rec *types.TranslationRecord) (*types.TranslationRecord, error)
	GetCurrentByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.TranslationRecord, error)
	GetByBlockID(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) ([]*types.TranslationRecord, error)
}

type translationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranslationRecordRepo(db *gorm.DB, baseLog *logger.Logger) TranslationRecordRepo {
	repoLog := baseLog.With("repo", "TranslationRecordRepo")
	return &translationRecordRepo{db: db, log: repoLog}
}

// Upsert writes one terminal (block_id, version) row. Replaying the same
// terminal state is an update, keeping persistence idempotent like the
// in-memory store.
func (r *translationRecordRepo) Upsert(ctx context.Context, tx *gorm.DB, rec *types.TranslationRecord) (*types.TranslationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "block_id"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "text", "error_code", "error_message", "updated_at"}),
		}).
		Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetCurrentByDocumentID returns the highest persisted version per block.
func (r *translationRecordRepo) GetCurrentByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.TranslationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TranslationRecord
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Where("(block_id, version) IN (?)",
			transaction.Model(&types.TranslationRecord{}).
				Select("block_id, MAX(version)").
				Where("document_id = ?", documentID).
				Group("block_id"),
		).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *translationRecordRepo) GetByBlockID(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) ([]*types.TranslationRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TranslationRecord
	if err := transaction.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("version ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
