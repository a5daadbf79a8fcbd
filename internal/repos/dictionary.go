package repos

import (
  "context"
  "errors"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type DictionaryRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entries []*types.DictionaryEntry) ([]*types.DictionaryEntry, error)
  GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.DictionaryEntry, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DictionaryEntry, error)
  SearchByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.DictionaryEntry, error)
  UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error
  FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error
}

type dictionaryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewDictionaryRepo(db *gorm.DB, baseLog *logger.Logger) DictionaryRepo {
  repoLog := baseLog.With("repo", "DictionaryRepo")
  return &dictionaryRepo{db: db, log: repoLog}
}

func (r *dictionaryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.DictionaryEntry) ([]*types.DictionaryEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(entries) == 0 {
    return []*types.DictionaryEntry{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
    return nil, err
  }
  return entries, nil
}

func (r *dictionaryRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.DictionaryEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var entry types.DictionaryEntry
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    First(&entry).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &entry, nil
}

func (r *dictionaryRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DictionaryEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.DictionaryEntry
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *dictionaryRepo) SearchByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.DictionaryEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 20
  }

  pattern := "%" + query + "%"
  var results []*types.DictionaryEntry
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Where("LOWER(word) LIKE LOWER(?) OR LOWER(meaning) LIKE LOWER(?)", pattern, pattern).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *dictionaryRepo) UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  res := transaction.WithContext(ctx).
    Model(&types.DictionaryEntry{}).
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

func (r *dictionaryRepo) FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    Delete(&types.DictionaryEntry{}).Error
}
