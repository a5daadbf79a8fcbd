package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "path/filepath"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
)

// maxDirectUploadBytes bounds the single-shot upload endpoint. Larger files
// must go through the chunked session flow.
const maxDirectUploadBytes int64 = 25 << 20

// DownloadURLTTL is how long a signed note download link stays valid.
const DownloadURLTTL = time.Hour

type NoteService interface {
  List(ctx context.Context, userID uuid.UUID) ([]*types.Note, error)
  Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]*types.Note, error)
  Get(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (*types.Note, error)
  Rename(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, title string) error
  SetFavorite(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, favorite bool) error
  MoveToFolder(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, folderID *uuid.UUID) error
  Delete(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error
  Upload(ctx context.Context, userID uuid.UUID, fileName string, fileType string, data []byte) (*types.Note, error)
  Download(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (io.ReadCloser, *types.Note, error)
  DownloadURL(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (string, error)
}

type noteService struct {
  log        *logger.Logger
  noteRepo   repos.NoteRepo
  folderRepo repos.FolderRepo
  bucket     BucketService
  enrichment EnrichmentQueue
}

func NewNoteService(
  baseLog *logger.Logger,
  noteRepo repos.NoteRepo,
  folderRepo repos.FolderRepo,
  bucket BucketService,
  enrichment EnrichmentQueue,
) NoteService {
  serviceLog := baseLog.With("service", "NoteService")
  return &noteService{
    log:        serviceLog,
    noteRepo:   noteRepo,
    folderRepo: folderRepo,
    bucket:     bucket,
    enrichment: enrichment,
  }
}

func (s *noteService) List(ctx context.Context, userID uuid.UUID) ([]*types.Note, error) {
  notes, err := s.noteRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list notes: %w", err)
  }
  return notes, nil
}

func (s *noteService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]*types.Note, error) {
  query = strings.TrimSpace(query)
  if query == "" {
    return nil, fmt.Errorf("%w: search query is required", ErrValidation)
  }
  notes, err := s.noteRepo.SearchByUserID(ctx, nil, userID, query, limit)
  if err != nil {
    return nil, fmt.Errorf("Failed to search notes: %w", err)
  }
  return notes, nil
}

func (s *noteService) Get(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (*types.Note, error) {
  note, err := s.noteRepo.GetByIDForUser(ctx, nil, noteID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load note: %w", err)
  }
  if note == nil {
    return nil, fmt.Errorf("%w: note %s", ErrNotFound, noteID)
  }
  return note, nil
}

func (s *noteService) Rename(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, title string) error {
  title = strings.TrimSpace(title)
  if title == "" {
    return fmt.Errorf("%w: title is required", ErrValidation)
  }
  return s.updateNote(ctx, userID, noteID, map[string]interface{}{
    "title":      title,
    "updated_at": time.Now(),
  })
}

func (s *noteService) SetFavorite(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, favorite bool) error {
  return s.updateNote(ctx, userID, noteID, map[string]interface{}{
    "is_favorite": favorite,
    "updated_at":  time.Now(),
  })
}

func (s *noteService) MoveToFolder(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, folderID *uuid.UUID) error {
  if folderID != nil {
    folder, err := s.folderRepo.GetByIDForUser(ctx, nil, *folderID, userID)
    if err != nil {
      return fmt.Errorf("Failed to load folder: %w", err)
    }
    if folder == nil {
      return fmt.Errorf("%w: folder %s", ErrNotFound, *folderID)
    }
  }
  return s.updateNote(ctx, userID, noteID, map[string]interface{}{
    "folder_id":  folderID,
    "updated_at": time.Now(),
  })
}

func (s *noteService) updateNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, fields map[string]interface{}) error {
  err := s.noteRepo.UpdateFieldsForUser(ctx, nil, noteID, userID, fields)
  if err != nil {
    if isNotFoundErr(err) {
      return fmt.Errorf("%w: note %s", ErrNotFound, noteID)
    }
    return fmt.Errorf("Failed to update note: %w", err)
  }
  return nil
}

func (s *noteService) Delete(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error {
  if err := s.noteRepo.SoftDeleteByIDForUser(ctx, nil, noteID, userID); err != nil {
    if isNotFoundErr(err) {
      return fmt.Errorf("%w: note %s", ErrNotFound, noteID)
    }
    return fmt.Errorf("Failed to delete note: %w", err)
  }
  return nil
}

// Upload is the single-shot path for small files: no session, everything
// inline in the request.
func (s *noteService) Upload(ctx context.Context, userID uuid.UUID, fileName string, fileType string, data []byte) (*types.Note, error) {
  fileName = strings.TrimSpace(fileName)
  if fileName == "" {
    return nil, fmt.Errorf("%w: file name is required", ErrValidation)
  }
  if len(data) == 0 {
    return nil, fmt.Errorf("%w: file is empty", ErrValidation)
  }
  if int64(len(data)) > maxDirectUploadBytes {
    return nil, fmt.Errorf("%w: file exceeds %d bytes; use chunked upload", ErrValidation, maxDirectUploadBytes)
  }

  key := fmt.Sprintf("uploads/%s/%d-%s%s", userID, time.Now().UnixMilli(), uuid.New(), filepath.Ext(fileName))
  if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(data)); err != nil {
    return nil, fmt.Errorf("Failed to upload blob: %w", err)
  }

  text := ExtractText(fileName, fileType, data)

  now := time.Now()
  note := &types.Note{
    ID:            uuid.New(),
    UserID:        userID,
    Title:         fileName,
    StorageKey:    key,
    FileURL:       s.bucket.GetPublicURL(key),
    MimeType:      fileType,
    SizeBytes:     int64(len(data)),
    ExtractedText: text,
    CreatedAt:     now,
    UpdatedAt:     now,
  }
  if _, err := s.noteRepo.Create(ctx, nil, []*types.Note{note}); err != nil {
    return nil, fmt.Errorf("Failed to create note: %w", err)
  }

  if ExtractedTextUsable(text) && s.enrichment != nil {
    if err := s.enrichment.Enqueue(ctx, userID, note.ID, text); err != nil {
      s.log.Warn("Failed to enqueue enrichment", "note_id", note.ID, "error", err)
    }
  }
  return note, nil
}

// DownloadURL hands out a time-limited signed link so clients can fetch the
// blob without streaming it through the API.
func (s *noteService) DownloadURL(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (string, error) {
  note, err := s.Get(ctx, userID, noteID)
  if err != nil {
    return "", err
  }
  url, err := s.bucket.SignedURL(note.StorageKey, DownloadURLTTL)
  if err != nil {
    return "", fmt.Errorf("Failed to sign download URL: %w", err)
  }
  return url, nil
}

func (s *noteService) Download(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) (io.ReadCloser, *types.Note, error) {
  note, err := s.Get(ctx, userID, noteID)
  if err != nil {
    return nil, nil, err
  }
  rc, err := s.bucket.DownloadFile(ctx, note.StorageKey)
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to download blob: %w", err)
  }
  return rc, note, nil
}
