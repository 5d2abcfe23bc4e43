package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/services"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	authService := services.NewAuthService(log, "middleware-test-secret", time.Hour)
	am := NewAuthMiddleware(log, authService)

	r := gin.New()
	r.GET("/protected", am.RequireSession(), func(c *gin.Context) {
		sessionID, ok := SessionID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
	})
	return r, authService
}

func TestRequireSessionAcceptsBearerHeader(t *testing.T) {
	r, authService := newAuthTestRouter(t)
	token, _, err := authService.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRequireSessionAcceptsQueryToken(t *testing.T) {
	r, authService := newAuthTestRouter(t)
	token, _, err := authService.CreateSession()
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// EventSource clients pass the token in the query string.
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRequireSessionRejectsMissingToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionRejectsBadToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSessionIDMissingWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := SessionID(c); ok {
		t.Fatalf("SessionID should report missing without RequireSession")
	}
	c.Set(SessionIDKey, uuid.New())
	if _, ok := SessionID(c); !ok {
		t.Fatalf("SessionID should read value set by middleware")
	}
}
