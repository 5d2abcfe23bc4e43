package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lingopane/lingopane-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CreateSession issues an anonymous workbench session token. The frontend
// calls this once on load and sends the token on every request after.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	token, sessionID, err := h.authService.CreateSession()
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "SESSION_CREATE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"token": token, "session_id": sessionID})
}
