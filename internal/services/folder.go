package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
)

type FolderService interface {
  Create(ctx context.Context, userID uuid.UUID, name string, color string) (*types.Folder, error)
  List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error)
  Rename(ctx context.Context, userID uuid.UUID, folderID uuid.UUID, name string, color string) error
  Delete(ctx context.Context, userID uuid.UUID, folderID uuid.UUID) error
}

type folderService struct {
  log        *logger.Logger
  folderRepo repos.FolderRepo
  noteRepo   repos.NoteRepo
}

func NewFolderService(baseLog *logger.Logger, folderRepo repos.FolderRepo, noteRepo repos.NoteRepo) FolderService {
  serviceLog := baseLog.With("service", "FolderService")
  return &folderService{log: serviceLog, folderRepo: folderRepo, noteRepo: noteRepo}
}

func (s *folderService) Create(ctx context.Context, userID uuid.UUID, name string, color string) (*types.Folder, error) {
  name = strings.TrimSpace(name)
  if name == "" {
    return nil, fmt.Errorf("%w: folder name is required", ErrValidation)
  }

  now := time.Now()
  folder := &types.Folder{
    ID:        uuid.New(),
    UserID:    userID,
    Name:      name,
    Color:     color,
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := s.folderRepo.Create(ctx, nil, []*types.Folder{folder}); err != nil {
    return nil, fmt.Errorf("Failed to create folder: %w", err)
  }
  return folder, nil
}

func (s *folderService) List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error) {
  folders, err := s.folderRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list folders: %w", err)
  }
  return folders, nil
}

func (s *folderService) Rename(ctx context.Context, userID uuid.UUID, folderID uuid.UUID, name string, color string) error {
  name = strings.TrimSpace(name)
  if name == "" {
    return fmt.Errorf("%w: folder name is required", ErrValidation)
  }
  err := s.folderRepo.UpdateFieldsForUser(ctx, nil, folderID, userID, map[string]interface{}{
    "name":       name,
    "color":      color,
    "updated_at": time.Now(),
  })
  if err != nil {
    if isNotFoundErr(err) {
      return fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
    }
    return fmt.Errorf("Failed to update folder: %w", err)
  }
  return nil
}

// Delete refuses to remove a folder that still holds notes.
func (s *folderService) Delete(ctx context.Context, userID uuid.UUID, folderID uuid.UUID) error {
  folder, err := s.folderRepo.GetByIDForUser(ctx, nil, folderID, userID)
  if err != nil {
    return fmt.Errorf("Failed to load folder: %w", err)
  }
  if folder == nil {
    return fmt.Errorf("%w: folder %s", ErrNotFound, folderID)
  }

  count, err := s.noteRepo.CountByFolderID(ctx, nil, folderID)
  if err != nil {
    return fmt.Errorf("Failed to count folder notes: %w", err)
  }
  if count > 0 {
    return fmt.Errorf("%w: folder still contains %d notes", ErrInvalidState, count)
  }

  if err := s.folderRepo.FullDeleteByIDForUser(ctx, nil, folderID, userID); err != nil {
    return fmt.Errorf("Failed to delete folder: %w", err)
  }
  return nil
}
