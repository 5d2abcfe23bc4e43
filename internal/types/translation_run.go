package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusCanceled RunStatus = "canceled"
	RunStatusFailed   RunStatus = "failed"
)

type TranslationRun struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID      uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Document        *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	SessionID       uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Status          RunStatus `gorm:"column:status;not null;default:'running';index" json:"status"`
	TargetLang      string    `gorm:"column:target_lang;not null" json:"target_lang"`
	Profile         string    `gorm:"column:profile;not null" json:"profile"`
	TotalBlocks     int       `gorm:"column:total_blocks;not null;default:0" json:"total_blocks"`
	CompletedBlocks int       `gorm:"column:completed_blocks;not null;default:0" json:"completed_blocks"`
	ErroredBlocks   int       `gorm:"column:errored_blocks;not null;default:0" json:"errored_blocks"`
	// Blocks still pending/streaming when the stream ended. Kept as-is in
	// the live store so a later run can resume them.
	IncompleteBlocks int            `gorm:"column:incomplete_blocks;not null;default:0" json:"incomplete_blocks"`
	StaleDrops       int            `gorm:"column:stale_drops;not null;default:0" json:"stale_drops"`
	StartedAt        time.Time      `gorm:"not null;default:now()" json:"started_at"`
	FinishedAt       *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TranslationRun) TableName() string { return "translation_run" }
