package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
)

type EnrichmentRunRepo interface {
  Create(ctx context.Context, tx *gorm.DB, runs []*types.EnrichmentRun) ([]*types.EnrichmentRun, error)
  GetByNoteID(ctx context.Context, tx *gorm.DB, noteID uuid.UUID) ([]*types.EnrichmentRun, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
  // ClaimNextRunnable picks the oldest queued run (or a failed run that is
  // retryable, or a running run whose heartbeat went stale), marks it running
  // and increments attempts, all in one transaction.
  ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.EnrichmentRun, error)
}

type enrichmentRunRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnrichmentRunRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentRunRepo {
  repoLog := baseLog.With("repo", "EnrichmentRunRepo")
  return &enrichmentRunRepo{db: db, log: repoLog}
}

func (r *enrichmentRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.EnrichmentRun) ([]*types.EnrichmentRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(runs) == 0 {
    return []*types.EnrichmentRun{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
    return nil, err
  }
  return runs, nil
}

func (r *enrichmentRunRepo) GetByNoteID(ctx context.Context, tx *gorm.DB, noteID uuid.UUID) ([]*types.EnrichmentRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.EnrichmentRun
  if err := transaction.WithContext(ctx).
    Where("note_id = ?", noteID).
    Order("created_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *enrichmentRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  return transaction.WithContext(ctx).
    Model(&types.EnrichmentRun{}).
    Where("id = ?", id).
    Updates(fields).Error
}

// ClaimNextRunnable atomically claims one runnable row. SKIP LOCKED is
// Postgres-only; the sqlite dev fallback cannot run the worker loop.
func (r *enrichmentRunRepo) ClaimNextRunnable(
  ctx context.Context,
  tx *gorm.DB,
  maxAttempts int,
  retryDelay time.Duration,
  staleRunning time.Duration,
) (*types.EnrichmentRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  retryCutoff := now.Add(-retryDelay)
  staleCutoff := now.Add(-staleRunning)

  var claimed *types.EnrichmentRun

  err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var run types.EnrichmentRun

    q := txx.
      Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
      Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.EnrichmentStatusQueued, types.EnrichmentStatusFailed, maxAttempts, retryCutoff, types.EnrichmentStatusRunning, staleCutoff).
      Order("created_at ASC")

    qErr := q.First(&run).Error
    if errors.Is(qErr, gorm.ErrRecordNotFound) {
      return nil
    }
    if qErr != nil {
      return qErr
    }

    uErr := txx.Model(&types.EnrichmentRun{}).
      Where("id = ?", run.ID).
      Updates(map[string]interface{}{
        "status":       types.EnrichmentStatusRunning,
        "attempts":     gorm.Expr("attempts + 1"),
        "locked_at":    now,
        "heartbeat_at": now,
        "updated_at":   now,
      }).Error
    if uErr != nil {
      return uErr
    }

    run.Status = types.EnrichmentStatusRunning
    run.Attempts++
    claimed = &run
    return nil
  })
  if err != nil {
    return nil, err
  }
  return claimed, nil
}
