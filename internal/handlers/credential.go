package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/middleware"
	"github.com/lingopane/lingopane-backend/internal/services"
)

type CredentialHandler struct {
	log         *logger.Logger
	credentials services.CredentialService
	profiles    *services.ProfileRegistry
}

func NewCredentialHandler(log *logger.Logger, credentials services.CredentialService, profiles *services.ProfileRegistry) *CredentialHandler {
	return &CredentialHandler{
		log:         log.With("handler", "CredentialHandler"),
		credentials: credentials,
		profiles:    profiles,
	}
}

type storeCredentialRequest struct {
	Provider string `json:"provider" binding:"required"`
	Label    string `json:"label" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

func (h *CredentialHandler) Store(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	var req storeCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	cred, err := h.credentials.Store(c.Request.Context(), sessionID, req.Provider, req.Label, req.APIKey)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, cred)
}

func (h *CredentialHandler) List(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	creds, err := h.credentials.List(c.Request.Context(), sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"credentials": creds})
}

func (h *CredentialHandler) Delete(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	credentialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_CREDENTIAL_ID", err)
		return
	}
	if err := h.credentials.Delete(c.Request.Context(), sessionID, credentialID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": credentialID})
}

// Profiles lists the selectable translation model profiles.
func (h *CredentialHandler) Profiles(c *gin.Context) {
	if _, ok := middleware.SessionID(c); !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	RespondOK(c, gin.H{"profiles": h.profiles.List(), "default": h.profiles.DefaultName()})
}
