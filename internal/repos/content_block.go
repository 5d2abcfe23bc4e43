package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

type ContentBlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, blocks []*types.ContentBlock) ([]*types.ContentBlock, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.ContentBlock, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentBlock, error)
}

type contentBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentBlockRepo(db *gorm.DB, baseLog *logger.Logger) ContentBlockRepo {
	repoLog := baseLog.With("repo", "ContentBlockRepo")
	return &contentBlockRepo{db: db, log: repoLog}
}

func (r *contentBlockRepo) Create(ctx context.Context, tx *gorm.DB, blocks []*types.ContentBlock) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(blocks) == 0 {
		return []*types.ContentBlock{}, nil
	}

	// Keep batches small because Text is large
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(blocks, batchSize).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *contentBlockRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentBlock
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentBlockRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ContentBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentBlock
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
