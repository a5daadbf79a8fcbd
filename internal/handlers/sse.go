package handlers

import (
  "github.com/gin-gonic/gin"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/sse"
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

// GET /api/events — streams upload and enrichment events for the caller.
func (h *SSEHandler) Stream(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }

  client := h.hub.NewSSEClient(userID)
  h.hub.AddChannel(client, sse.UserChannel(userID))
  defer h.hub.CloseClient(client)

  h.hub.ServeHTTP(c.Writer, c.Request, client)
}
