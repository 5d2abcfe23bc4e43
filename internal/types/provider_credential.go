package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderCredential stores a user-supplied (BYOK) provider API key. The key
// is sealed with an AEAD before it touches the database; plaintext exists
// only in memory for the duration of a translation request.
type ProviderCredential struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_provider_credential_session_label,unique,priority:1" json:"session_id"`
	Provider   string         `gorm:"column:provider;not null" json:"provider"`
	Label      string         `gorm:"column:label;not null;index:idx_provider_credential_session_label,unique,priority:2" json:"label"`
	Ciphertext []byte         `gorm:"column:ciphertext;not null" json:"-"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProviderCredential) TableName() string { return "provider_credential" }
