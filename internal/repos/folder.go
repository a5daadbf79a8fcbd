package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type FolderRepo interface {
  Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Folder, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error)
  UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error
  FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error
}

type folderRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFolderRepo(db *gorm.DB, baseLog *logger.Logger) FolderRepo {
  repoLog := baseLog.With("repo", "FolderRepo")
  return &folderRepo{db: db, log: repoLog}
}

func (r *folderRepo) Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(folders) == 0 {
    return []*types.Folder{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&folders).Error; err != nil {
    return nil, err
  }
  return folders, nil
}

func (r *folderRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var folder types.Folder
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    First(&folder).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &folder, nil
}

func (r *folderRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Folder
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *folderRepo) UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Folder{}).
    Where("id = ? AND user_id = ?", id, userID).
    Updates(fields)
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return gorm.ErrRecordNotFound
  }
  return nil
}

func (r *folderRepo) FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    Delete(&types.Folder{}).Error
}
