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

type TranslationHandler struct {
	log                *logger.Logger
	translationService services.TranslationService
}

func NewTranslationHandler(log *logger.Logger, translationService services.TranslationService) *TranslationHandler {
	return &TranslationHandler{
		log:                log.With("handler", "TranslationHandler"),
		translationService: translationService,
	}
}

type startRunRequest struct {
	CredentialID string `json:"credential_id" binding:"required"`
	Profile      string `json:"profile"`
	TargetLang   string `json:"target_lang"`
}

func (h *TranslationHandler) StartRun(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	credentialID, err := uuid.Parse(req.CredentialID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_CREDENTIAL_ID", err)
		return
	}
	run, err := h.translationService.StartRun(c.Request.Context(), services.StartRunInput{
		SessionID:    sessionID,
		DocumentID:   documentID,
		CredentialID: credentialID,
		Profile:      req.Profile,
		TargetLang:   req.TargetLang,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, run)
}

type retranslateRequest struct {
	CredentialID string `json:"credential_id" binding:"required"`
	Profile      string `json:"profile"`
	TargetLang   string `json:"target_lang"`
}

func (h *TranslationHandler) RetranslateBlock(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}
	blockID, err := uuid.Parse(c.Param("blockId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_BLOCK_ID", err)
		return
	}
	var req retranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	credentialID, err := uuid.Parse(req.CredentialID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_CREDENTIAL_ID", err)
		return
	}
	version, err := h.translationService.RetranslateBlock(c.Request.Context(), services.RetranslateInput{
		SessionID:    sessionID,
		DocumentID:   documentID,
		BlockID:      blockID,
		CredentialID: credentialID,
		Profile:      req.Profile,
		TargetLang:   req.TargetLang,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"block_id": blockID, "version": version})
}

func (h *TranslationHandler) CancelRun(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}
	if err := h.translationService.CancelRun(c.Request.Context(), sessionID, documentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"canceled": documentID})
}

func (h *TranslationHandler) RunStatus(c *gin.Context) {
	if _, ok := middleware.SessionID(c); !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_RUN_ID", err)
		return
	}
	run, err := h.translationService.RunStatus(c.Request.Context(), runID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, run)
}
