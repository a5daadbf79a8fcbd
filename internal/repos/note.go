package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type NoteRepo interface {
  Create(ctx context.Context, tx *gorm.DB, notes []*types.Note) ([]*types.Note, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Note, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Note, error)
  SearchByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.Note, error)
  CountByFolderID(ctx context.Context, tx *gorm.DB, folderID uuid.UUID) (int64, error)
  UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error
  SoftDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error
}

type noteRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
  repoLog := baseLog.With("repo", "NoteRepo")
  return &noteRepo{db: db, log: repoLog}
}

func (r *noteRepo) Create(ctx context.Context, tx *gorm.DB, notes []*types.Note) ([]*types.Note, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(notes) == 0 {
    return []*types.Note{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&notes).Error; err != nil {
    return nil, err
  }
  return notes, nil
}

func (r *noteRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Note, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var note types.Note
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    First(&note).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &note, nil
}

func (r *noteRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Note, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Note
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *noteRepo) SearchByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.Note, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 20
  }

  pattern := "%" + query + "%"
  var results []*types.Note
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Where("LOWER(title) LIKE LOWER(?) OR LOWER(extracted_text) LIKE LOWER(?)", pattern, pattern).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *noteRepo) CountByFolderID(ctx context.Context, tx *gorm.DB, folderID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Note{}).
    Where("folder_id = ?", folderID).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (r *noteRepo) UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.Note{}).
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

func (r *noteRepo) SoftDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    Delete(&types.Note{}).Error
}
