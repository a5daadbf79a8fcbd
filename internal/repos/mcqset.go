package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type MCQSetRepo interface {
  Create(ctx context.Context, tx *gorm.DB, sets []*types.MCQSet) ([]*types.MCQSet, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.MCQSet, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MCQSet, error)
  FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error
}

type mcqSetRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMCQSetRepo(db *gorm.DB, baseLog *logger.Logger) MCQSetRepo {
  repoLog := baseLog.With("repo", "MCQSetRepo")
  return &mcqSetRepo{db: db, log: repoLog}
}

func (r *mcqSetRepo) Create(ctx context.Context, tx *gorm.DB, sets []*types.MCQSet) ([]*types.MCQSet, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(sets) == 0 {
    return []*types.MCQSet{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&sets).Error; err != nil {
    return nil, err
  }
  return sets, nil
}

func (r *mcqSetRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.MCQSet, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var set types.MCQSet
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    First(&set).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &set, nil
}

func (r *mcqSetRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.MCQSet, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.MCQSet
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *mcqSetRepo) FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    Delete(&types.MCQSet{}).Error
}
