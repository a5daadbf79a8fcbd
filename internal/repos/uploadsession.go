package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type UploadSessionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, sessions []*types.UploadSession) ([]*types.UploadSession, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.UploadSession, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadSession, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type uploadSessionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewUploadSessionRepo(db *gorm.DB, baseLog *logger.Logger) UploadSessionRepo {
  repoLog := baseLog.With("repo", "UploadSessionRepo")
  return &uploadSessionRepo{db: db, log: repoLog}
}

func (r *uploadSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.UploadSession) ([]*types.UploadSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(sessions) == 0 {
    return []*types.UploadSession{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
    return nil, err
  }
  return sessions, nil
}

func (r *uploadSessionRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.UploadSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var session types.UploadSession
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    First(&session).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &session, nil
}

func (r *uploadSessionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadSession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.UploadSession
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *uploadSessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.UploadSession{}).
    Where("id = ?", id).
    Updates(fields).Error
}

func (r *uploadSessionRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.UploadSession{}).Error
}
