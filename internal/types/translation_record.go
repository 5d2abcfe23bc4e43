package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TranslationStatus string

const (
	TranslationStatusPending   TranslationStatus = "pending"
	TranslationStatusStreaming TranslationStatus = "streaming"
	TranslationStatusComplete  TranslationStatus = "complete"
	TranslationStatusError     TranslationStatus = "error"
)

// TranslationRecord is the persisted form of one translation version for one
// block. The live streaming state is held in memory (docsync.Store); rows
// here are written when a version reaches a terminal status.
type TranslationRecord struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"document_id"`
	BlockID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_translation_record_block_version,unique,priority:1" json:"block_id"`
	Block        *ContentBlock     `gorm:"constraint:OnDelete:CASCADE;foreignKey:BlockID;references:ID" json:"block,omitempty"`
	Version      int               `gorm:"column:version;not null;default:1;index:idx_translation_record_block_version,unique,priority:2" json:"version"`
	Status       TranslationStatus `gorm:"column:status;not null;index" json:"status"`
	Text         string            `gorm:"column:text;type:text" json:"text"`
	ErrorCode    string            `gorm:"column:error_code" json:"error_code,omitempty"`
	ErrorMessage string            `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (TranslationRecord) TableName() string { return "translation_record" }
