package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/middleware"
	"github.com/lingopane/lingopane-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// Stream opens the long-lived event stream for one document. Both panes of
// the workbench share this stream: translation progress and highlight
// changes arrive as tagged messages on the document channel.
func (h *SSEHandler) Stream(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "NO_SESSION", fmt.Errorf("missing session"))
		return
	}
	documentID, err := uuid.Parse(c.Query("document_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_DOCUMENT_ID", err)
		return
	}

	client := h.hub.NewSSEClient(sessionID)
	h.hub.AddChannel(client, sse.DocumentChannel(documentID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
