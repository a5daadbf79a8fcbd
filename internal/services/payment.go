package services

import (
  "context"
  "crypto/hmac"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
  "github.com/notelet/notelet-backend/internal/utils"
)

// PaymentService records provider webhook events after verifying their
// HMAC-SHA256 signature against the shared webhook secret.
type PaymentService interface {
  HandleWebhook(ctx context.Context, provider string, signature string, body []byte) (*types.PaymentEvent, error)
  ListEvents(ctx context.Context, userID uuid.UUID) ([]*types.PaymentEvent, error)
}

type paymentService struct {
  log    *logger.Logger
  repo   repos.PaymentEventRepo
  secret []byte
}

func NewPaymentService(baseLog *logger.Logger, repo repos.PaymentEventRepo) PaymentService {
  serviceLog := baseLog.With("service", "PaymentService")
  secret := utils.GetEnv("PAYMENT_WEBHOOK_SECRET", "", serviceLog)
  if secret == "" {
    serviceLog.Warn("PAYMENT_WEBHOOK_SECRET not set; webhook verification will reject all events")
  }
  return &paymentService{log: serviceLog, repo: repo, secret: []byte(secret)}
}

type webhookPayload struct {
  EventType string     `json:"event_type"`
  OrderRef  string     `json:"order_ref"`
  UserID    *uuid.UUID `json:"user_id,omitempty"`
}

func (s *paymentService) HandleWebhook(ctx context.Context, provider string, signature string, body []byte) (*types.PaymentEvent, error) {
  if len(s.secret) == 0 || !s.verifySignature(signature, body) {
    return nil, fmt.Errorf("%w: webhook signature mismatch", ErrValidation)
  }

  var payload webhookPayload
  if err := json.Unmarshal(body, &payload); err != nil {
    return nil, fmt.Errorf("%w: malformed webhook body", ErrValidation)
  }

  event := &types.PaymentEvent{
    ID:        uuid.New(),
    UserID:    payload.UserID,
    Provider:  provider,
    EventType: payload.EventType,
    OrderRef:  payload.OrderRef,
    Payload:   datatypes.JSON(body),
    CreatedAt: time.Now(),
  }
  if _, err := s.repo.Create(ctx, nil, []*types.PaymentEvent{event}); err != nil {
    return nil, fmt.Errorf("Failed to record payment event: %w", err)
  }
  s.log.Info("Payment event recorded", "provider", provider, "event_type", payload.EventType, "order_ref", payload.OrderRef)
  return event, nil
}

func (s *paymentService) verifySignature(signature string, body []byte) bool {
  mac := hmac.New(sha256.New, s.secret)
  mac.Write(body)
  expected := hex.EncodeToString(mac.Sum(nil))
  return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *paymentService) ListEvents(ctx context.Context, userID uuid.UUID) ([]*types.PaymentEvent, error) {
  events, err := s.repo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list payment events: %w", err)
  }
  return events, nil
}
