package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

// AuthService issues and validates workbench session tokens. Sessions are
// anonymous: the frontend requests one on load and scopes its documents and
// stored credentials to it. No user accounts exist in this product.
type AuthService interface {
	CreateSession() (string, uuid.UUID, error)
	ValidateToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
	log       *logger.Logger
	secretKey []byte
	ttl       time.Duration
}

func NewAuthService(log *logger.Logger, secretKey string, ttl time.Duration) AuthService {
	return &authService{
		log:       log.With("service", "AuthService"),
		secretKey: []byte(secretKey),
		ttl:       ttl,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *authService) CreateSession() (string, uuid.UUID, error) {
	sessionID := uuid.New()
	now := time.Now()
	claims := sessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "lingopane",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", uuid.Nil, err
	}
	s.log.Debug("Created session", "session_id", sessionID)
	return signed, sessionID, nil
}

func (s *authService) ValidateToken(tokenString string) (uuid.UUID, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id in token: %w", err)
	}
	return sessionID, nil
}
