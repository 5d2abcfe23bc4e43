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

type DocumentHandler struct {
	log             *logger.Logger
	documentService services.DocumentService
	snapshotService services.SnapshotService
}

func NewDocumentHandler(log *logger.Logger, documentService services.DocumentService, snapshotService services.SnapshotService) *DocumentHandler {
	return &DocumentHandler{
		log:             log.With("handler", "DocumentHandler"),
		documentService: documentService,
		snapshotService: snapshotService,
	}
}

type createDocumentRequest struct {
	URL        string `json:"url" binding:"required"`
	TargetLang string `json:"target_lang"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	doc, err := h.documentService.CreateFromURL(c.Request.Context(), sessionID, req.URL, req.TargetLang)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
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
	view, err := h.documentService.GetView(c.Request.Context(), sessionID, documentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *DocumentHandler) List(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	docs, err := h.documentService.List(c.Request.Context(), sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
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
	if err := h.documentService.Delete(c.Request.Context(), sessionID, documentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": documentID})
}

// Export uploads the current two-pane state as a JSON snapshot and returns
// its public URL.
func (h *DocumentHandler) Export(c *gin.Context) {
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
	if h.snapshotService == nil {
		RespondError(c, http.StatusServiceUnavailable, "EXPORT_DISABLED", fmt.Errorf("snapshot storage not configured"))
		return
	}
	view, err := h.documentService.GetView(c.Request.Context(), sessionID, documentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	key, err := h.snapshotService.Export(c.Request.Context(), view.Document, view.Blocks, view.States)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"key": key, "url": h.snapshotService.GetPublicURL(key)})
}
