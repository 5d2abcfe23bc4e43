package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"gorm.io/gorm"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/repos"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// CredentialService seals BYOK provider keys before they reach the
// database. The sealing key comes from the environment; losing it only
// invalidates stored credentials, which users can re-enter.
type CredentialService interface {
	Store(ctx context.Context, sessionID uuid.UUID, provider, label, apiKey string) (*types.ProviderCredential, error)
	Reveal(ctx context.Context, sessionID, credentialID uuid.UUID) (string, error)
	List(ctx context.Context, sessionID uuid.UUID) ([]*types.ProviderCredential, error)
	Delete(ctx context.Context, sessionID, credentialID uuid.UUID) error
}

type credentialService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.ProviderCredentialRepo
	key  []byte
}

func NewCredentialService(db *gorm.DB, log *logger.Logger, repo repos.ProviderCredentialRepo) (CredentialService, error) {
	rawKey := strings.TrimSpace(os.Getenv("CREDENTIAL_SEAL_KEY"))
	if rawKey == "" {
		return nil, fmt.Errorf("missing CREDENTIAL_SEAL_KEY")
	}
	key, err := hex.DecodeString(rawKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("CREDENTIAL_SEAL_KEY must be %d hex-encoded bytes", chacha20poly1305.KeySize)
	}
	return &credentialService{
		db:   db,
		log:  log.With("service", "CredentialService"),
		repo: repo,
		key:  key,
	}, nil
}

func (s *credentialService) Store(ctx context.Context, sessionID uuid.UUID, provider, label, apiKey string) (*types.ProviderCredential, error) {
	provider = strings.TrimSpace(provider)
	label = strings.TrimSpace(label)
	if provider == "" || label == "" {
		return nil, fmt.Errorf("provider and label are required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	sealed, err := s.seal([]byte(apiKey), sessionID)
	if err != nil {
		return nil, err
	}
	cred := &types.ProviderCredential{
		SessionID:  sessionID,
		Provider:   provider,
		Label:      label,
		Ciphertext: sealed,
	}
	created, err := s.repo.Create(ctx, nil, cred)
	if err != nil {
		return nil, err
	}
	s.log.Info("Stored provider credential", "session_id", sessionID, "provider", provider, "label", label)
	return created, nil
}

func (s *credentialService) Reveal(ctx context.Context, sessionID, credentialID uuid.UUID) (string, error) {
	cred, err := s.repo.GetByID(ctx, nil, credentialID)
	if err != nil {
		return "", err
	}
	if cred.SessionID != sessionID {
		return "", fmt.Errorf("credential does not belong to session")
	}
	plain, err := s.open(cred.Ciphertext, sessionID)
	if err != nil {
		return "", fmt.Errorf("unseal credential: %w", err)
	}
	return string(plain), nil
}

func (s *credentialService) List(ctx context.Context, sessionID uuid.UUID) ([]*types.ProviderCredential, error) {
	return s.repo.ListBySessionID(ctx, nil, sessionID)
}

func (s *credentialService) Delete(ctx context.Context, sessionID, credentialID uuid.UUID) error {
	cred, err := s.repo.GetByID(ctx, nil, credentialID)
	if err != nil {
		return err
	}
	if cred.SessionID != sessionID {
		return fmt.Errorf("credential does not belong to session")
	}
	return s.repo.Delete(ctx, nil, credentialID)
}

// seal prepends the random nonce to the ciphertext. The session id is bound
// as associated data so a row copied between sessions fails to open.
func (s *credentialService) seal(plaintext []byte, sessionID uuid.UUID) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := aead.Seal(nonce, nonce, plaintext, sessionID[:])
	return out, nil
}

func (s *credentialService) open(sealed []byte, sessionID uuid.UUID) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, sessionID[:])
}
