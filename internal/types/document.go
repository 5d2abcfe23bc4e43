package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentStatusExtracting DocumentStatus = "extracting"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"session_id"`
	SourceURL  string          `gorm:"column:source_url;not null" json:"source_url"`
	Title      string          `gorm:"column:title" json:"title"`
	SourceLang string          `gorm:"column:source_lang" json:"source_lang"`
	TargetLang string          `gorm:"column:target_lang" json:"target_lang"`
	Status     DocumentStatus  `gorm:"column:status;not null;default:'extracting';index" json:"status"`
	Blocks     []*ContentBlock `gorm:"foreignKey:DocumentID;references:ID" json:"blocks,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }
