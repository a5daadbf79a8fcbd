package handlers

import (
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/services"
)

type PaymentHandler struct {
  log            *logger.Logger
  paymentService services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, paymentService services.PaymentService) *PaymentHandler {
  return &PaymentHandler{
    log:            log.With("handler", "PaymentHandler"),
    paymentService: paymentService,
  }
}

// POST /api/payments/webhook/:provider (unauthenticated; HMAC verified)
func (h *PaymentHandler) Webhook(c *gin.Context) {
  body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  signature := c.GetHeader("X-Webhook-Signature")
  event, err := h.paymentService.HandleWebhook(c.Request.Context(), c.Param("provider"), signature, body)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"received": true, "event_id": event.ID})
}

// GET /api/payments/events
func (h *PaymentHandler) ListEvents(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  events, err := h.paymentService.ListEvents(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"events": events})
}
