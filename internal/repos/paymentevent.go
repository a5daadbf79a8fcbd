package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type PaymentEventRepo interface {
  Create(ctx context.Context, tx *gorm.DB, events []*types.PaymentEvent) ([]*types.PaymentEvent, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PaymentEvent, error)
}

type paymentEventRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPaymentEventRepo(db *gorm.DB, baseLog *logger.Logger) PaymentEventRepo {
  repoLog := baseLog.With("repo", "PaymentEventRepo")
  return &paymentEventRepo{db: db, log: repoLog}
}

func (r *paymentEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.PaymentEvent) ([]*types.PaymentEvent, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(events) == 0 {
    return []*types.PaymentEvent{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
    return nil, err
  }
  return events, nil
}

func (r *paymentEventRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PaymentEvent, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.PaymentEvent
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
