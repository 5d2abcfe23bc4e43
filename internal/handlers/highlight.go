package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/highlight"
	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/middleware"
	"github.com/lingopane/lingopane-backend/internal/services"
)

// HighlightHandler feeds pane hover/focus events into the document's
// highlight coordinator. Both panes post here; the resulting active-block
// changes go back out on the document's SSE channel, so the panes always
// agree on the single highlighted block.
type HighlightHandler struct {
	log      *logger.Logger
	registry *services.SyncRegistry
}

func NewHighlightHandler(log *logger.Logger, registry *services.SyncRegistry) *HighlightHandler {
	return &HighlightHandler{
		log:      log.With("handler", "HighlightHandler"),
		registry: registry,
	}
}

type highlightEventRequest struct {
	Kind    string `json:"kind" binding:"required"`
	BlockID string `json:"block_id" binding:"required"`
	Pane    string `json:"pane"`
}

func (h *HighlightHandler) Event(c *gin.Context) {
	if _, ok := middleware.SessionID(c); !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}
	var req highlightEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	blockID, err := uuid.Parse(req.BlockID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_BLOCK_ID", err)
		return
	}
	pane := highlight.Pane(req.Pane)
	if pane != highlight.PaneSource && pane != highlight.PaneTranslation {
		pane = highlight.PaneSource
	}

	entry, ok := h.registry.Get(documentID)
	if !ok {
		RespondError(c, http.StatusNotFound, "DOCUMENT_NOT_OPEN", fmt.Errorf("document has no live state"))
		return
	}

	switch req.Kind {
	case "hover_enter":
		entry.Highlight.HoverEnter(blockID, pane)
	case "hover_leave":
		entry.Highlight.HoverLeave(blockID)
	case "focus":
		entry.Highlight.Focus(blockID, pane)
	case "blur":
		entry.Highlight.Blur(blockID)
	default:
		RespondError(c, http.StatusBadRequest, "BAD_EVENT_KIND", fmt.Errorf("unknown highlight event kind %q", req.Kind))
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

// Active reports the currently highlighted block, for panes reconnecting
// mid-session.
func (h *HighlightHandler) Active(c *gin.Context) {
	if _, ok := middleware.SessionID(c); !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}
	entry, ok := h.registry.Get(documentID)
	if !ok {
		RespondOK(c, gin.H{"active": false})
		return
	}
	blockID, active := entry.Highlight.Active()
	if !active {
		RespondOK(c, gin.H{"active": false})
		return
	}
	RespondOK(c, gin.H{"active": true, "block_id": blockID})
}
