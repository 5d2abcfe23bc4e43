package services

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

func newTestCredentialService(t *testing.T) *credentialService {
	t.Helper()
	key := make([]byte, chacha20poly1305.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("CREDENTIAL_SEAL_KEY", hex.EncodeToString(key))
	svc, err := NewCredentialService(nil, mustTestLogger(t), nil)
	if err != nil {
		t.Fatalf("NewCredentialService: %v", err)
	}
	return svc.(*credentialService)
}

func TestCredentialSealOpenRoundtrip(t *testing.T) {
	svc := newTestCredentialService(t)
	sessionID := uuid.New()
	apiKey := "sk-proj-abc123"

	sealed, err := svc.seal([]byte(apiKey), sessionID)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(string(sealed), apiKey) {
		t.Fatalf("ciphertext leaks plaintext key")
	}

	plain, err := svc.open(sealed, sessionID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plain) != apiKey {
		t.Fatalf("roundtrip: want=%q got=%q", apiKey, plain)
	}
}

func TestCredentialSealBindsSession(t *testing.T) {
	svc := newTestCredentialService(t)
	owner := uuid.New()

	sealed, err := svc.seal([]byte("sk-secret"), owner)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := svc.open(sealed, uuid.New()); err == nil {
		t.Fatalf("ciphertext opened under a foreign session")
	}
}

func TestCredentialSealProducesFreshNonces(t *testing.T) {
	svc := newTestCredentialService(t)
	sessionID := uuid.New()

	a, err := svc.seal([]byte("same-key"), sessionID)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := svc.seal([]byte("same-key"), sessionID)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if string(a) == string(b) {
		t.Fatalf("two seals of the same plaintext must differ")
	}
}

func TestCredentialServiceRejectsBadSealKey(t *testing.T) {
	t.Setenv("CREDENTIAL_SEAL_KEY", "not-hex")
	if _, err := NewCredentialService(nil, mustTestLogger(t), nil); err == nil {
		t.Fatalf("expected error for malformed seal key")
	}

	t.Setenv("CREDENTIAL_SEAL_KEY", "abcd")
	if _, err := NewCredentialService(nil, mustTestLogger(t), nil); err == nil {
		t.Fatalf("expected error for short seal key")
	}
}
