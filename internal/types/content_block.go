package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeHeading   BlockType = "heading"
	BlockTypeList      BlockType = "list"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeCode      BlockType = "code"
	BlockTypeImage     BlockType = "image"
)

// ContentBlock is a normalized unit of extracted document content. Blocks
// are immutable once written; re-extracting a page produces a new document
// with new block ids rather than mutating these rows.
type ContentBlock struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index:idx_content_block_doc_pos,unique,priority:1" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	Position   int       `gorm:"column:position;not null;index:idx_content_block_doc_pos,unique,priority:2" json:"position"`
	Type       BlockType `gorm:"column:type;not null" json:"type"`
	Text       string    `gorm:"column:text;type:text;not null" json:"text"`
	// Open key/value bag (heading level, code language, list ordering).
	// Never required for identity.
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (ContentBlock) TableName() string { return "content_block" }

func ValidBlockType(t BlockType) bool {
	switch t {
	case BlockTypeParagraph, BlockTypeHeading, BlockTypeList, BlockTypeQuote, BlockTypeCode, BlockTypeImage:
		return true
	default:
		return false
	}
}
