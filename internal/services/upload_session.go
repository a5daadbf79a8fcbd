package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "path/filepath"
  "strings"
  "sync"
  "time"

  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/sse"
  "github.com/notelet/notelet-backend/internal/types"
)

// DefaultChunkSize is the chunk size we recommend to clients on session init.
const DefaultChunkSize int64 = 1 << 20

// EnrichmentQueue is the slice of the enrichment service the upload pipeline
// needs: queue a run for a freshly created note.
type EnrichmentQueue interface {
  Enqueue(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, text string) error
}

type ChunkProgress struct {
  SessionID     uuid.UUID  `json:"session_id"`
  BytesReceived int64      `json:"bytes_received"`
  Progress      int        `json:"progress"`
  Status        string     `json:"status"`
  NoteID        *uuid.UUID `json:"note_id,omitempty"`
}

type UploadSessionService interface {
  Init(ctx context.Context, userID uuid.UUID, fileName string, fileType string, fileSize int64) (*types.UploadSession, int64, error)
  AppendChunk(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, chunkIndex int, totalChunks int, data []byte) (*ChunkProgress, error)
  Pause(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error)
  Resume(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error)
  Delete(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) error
  GetProgress(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error)
  ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.UploadSession, error)
  Download(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (io.ReadCloser, *types.Note, error)
}

type uploadSessionService struct {
  log         *logger.Logger
  sessionRepo repos.UploadSessionRepo
  noteRepo    repos.NoteRepo
  scratch     ScratchStore
  bucket      BucketService
  enrichment  EnrichmentQueue
  broadcaster *sse.Broadcaster

  // one mutex per live session so appends and finalize never interleave
  mu    sync.Mutex
  locks map[uuid.UUID]*sync.Mutex
}

func NewUploadSessionService(
  baseLog *logger.Logger,
  sessionRepo repos.UploadSessionRepo,
  noteRepo repos.NoteRepo,
  scratch ScratchStore,
  bucket BucketService,
  enrichment EnrichmentQueue,
  broadcaster *sse.Broadcaster,
) UploadSessionService {
  serviceLog := baseLog.With("service", "UploadSessionService")
  return &uploadSessionService{
    log:         serviceLog,
    sessionRepo: sessionRepo,
    noteRepo:    noteRepo,
    scratch:     scratch,
    bucket:      bucket,
    enrichment:  enrichment,
    broadcaster: broadcaster,
    locks:       make(map[uuid.UUID]*sync.Mutex),
  }
}

func (s *uploadSessionService) sessionLock(id uuid.UUID) *sync.Mutex {
  s.mu.Lock()
  defer s.mu.Unlock()
  l, ok := s.locks[id]
  if !ok {
    l = &sync.Mutex{}
    s.locks[id] = l
  }
  return l
}

func (s *uploadSessionService) dropLock(id uuid.UUID) {
  s.mu.Lock()
  defer s.mu.Unlock()
  delete(s.locks, id)
}

func (s *uploadSessionService) Init(ctx context.Context, userID uuid.UUID, fileName string, fileType string, fileSize int64) (*types.UploadSession, int64, error) {
  fileName = strings.TrimSpace(fileName)
  if fileName == "" {
    return nil, 0, fmt.Errorf("%w: file name is required", ErrValidation)
  }
  fileType = strings.TrimSpace(fileType)
  if fileType == "" {
    return nil, 0, fmt.Errorf("%w: file type is required", ErrValidation)
  }
  if fileSize <= 0 {
    return nil, 0, fmt.Errorf("%w: file size must be positive", ErrValidation)
  }

  id := uuid.New()
  scratchPath, err := s.scratch.Create(id)
  if err != nil {
    return nil, 0, fmt.Errorf("Failed to create scratch file: %w", err)
  }

  now := time.Now()
  session := &types.UploadSession{
    ID:          id,
    UserID:      userID,
    FileName:    fileName,
    FileType:    fileType,
    FileSize:    fileSize,
    Status:      types.UploadStatusUploading,
    ScratchPath: scratchPath,
    CreatedAt:   now,
    UpdatedAt:   now,
  }
  if _, err := s.sessionRepo.Create(ctx, nil, []*types.UploadSession{session}); err != nil {
    _ = s.scratch.Remove(scratchPath)
    return nil, 0, fmt.Errorf("Failed to create upload session: %w", err)
  }

  s.log.Info("Upload session started", "session_id", id, "user_id", userID, "file_size", fileSize)
  return session, DefaultChunkSize, nil
}

func (s *uploadSessionService) AppendChunk(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, chunkIndex int, totalChunks int, data []byte) (*ChunkProgress, error) {
  if totalChunks <= 0 || chunkIndex < 0 || chunkIndex >= totalChunks {
    return nil, fmt.Errorf("%w: chunk index %d out of range for %d chunks", ErrValidation, chunkIndex, totalChunks)
  }
  if len(data) == 0 {
    return nil, fmt.Errorf("%w: chunk is empty", ErrValidation)
  }

  lock := s.sessionLock(sessionID)
  lock.Lock()
  defer lock.Unlock()

  session, err := s.sessionRepo.GetByIDForUser(ctx, nil, sessionID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load upload session: %w", err)
  }
  if session == nil {
    return nil, fmt.Errorf("%w: upload session %s", ErrNotFound, sessionID)
  }
  if session.Status != types.UploadStatusUploading {
    return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
  }
  if session.BytesReceived+int64(len(data)) > session.FileSize {
    return nil, fmt.Errorf("%w: chunk would exceed declared file size", ErrValidation)
  }

  if err := s.scratch.Append(session.ScratchPath, data); err != nil {
    s.markFailed(ctx, session, fmt.Sprintf("scratch write failed: %v", err))
    return nil, fmt.Errorf("Failed to append chunk: %w", err)
  }

  session.BytesReceived += int64(len(data))
  session.Progress = int(session.BytesReceived * 100 / session.FileSize)
  if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
    "bytes_received": session.BytesReceived,
    "progress":       session.Progress,
    "updated_at":     time.Now(),
  }); err != nil {
    return nil, fmt.Errorf("Failed to update upload session: %w", err)
  }

  if chunkIndex == totalChunks-1 {
    if err := s.finalize(ctx, session); err != nil {
      return nil, err
    }
  }

  return &ChunkProgress{
    SessionID:     session.ID,
    BytesReceived: session.BytesReceived,
    Progress:      session.Progress,
    Status:        session.Status,
    NoteID:        session.NoteID,
  }, nil
}

// finalize turns the spooled bytes into a durable note: blob upload, text
// extraction, note row, enrichment enqueue, then the terminal status flip.
// Runs with the session lock held. On failure the scratch file is kept so
// the client can retry from a fresh session without re-reading the source.
func (s *uploadSessionService) finalize(ctx context.Context, session *types.UploadSession) error {
  data, err := s.scratch.Read(session.ScratchPath)
  if err != nil {
    s.markFailed(ctx, session, fmt.Sprintf("scratch read failed: %v", err))
    return fmt.Errorf("Failed to read spooled upload: %w", err)
  }

  key := fmt.Sprintf("uploads/%s/%d-%s%s",
    session.UserID, time.Now().UnixMilli(), uuid.New(), filepath.Ext(session.FileName))
  if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(data)); err != nil {
    s.markFailed(ctx, session, fmt.Sprintf("blob upload failed: %v", err))
    return fmt.Errorf("Failed to upload blob: %w", err)
  }

  text := ExtractText(session.FileName, session.FileType, data)

  now := time.Now()
  note := &types.Note{
    ID:            uuid.New(),
    UserID:        session.UserID,
    Title:         session.FileName,
    StorageKey:    key,
    FileURL:       s.bucket.GetPublicURL(key),
    MimeType:      session.FileType,
    SizeBytes:     session.FileSize,
    ExtractedText: text,
    CreatedAt:     now,
    UpdatedAt:     now,
  }
  if _, err := s.noteRepo.Create(ctx, nil, []*types.Note{note}); err != nil {
    // blob stays behind; orphaned objects are cleaned out of band
    s.markFailed(ctx, session, fmt.Sprintf("note create failed: %v", err))
    return fmt.Errorf("Failed to create note: %w", err)
  }

  if ExtractedTextUsable(text) && s.enrichment != nil {
    if err := s.enrichment.Enqueue(ctx, session.UserID, note.ID, text); err != nil {
      s.log.Warn("Failed to enqueue enrichment", "note_id", note.ID, "error", err)
    }
  }

  completedAt := time.Now()
  session.Status = types.UploadStatusCompleted
  session.Progress = 100
  session.NoteID = &note.ID
  session.CompletedAt = &completedAt
  if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
    "status":       types.UploadStatusCompleted,
    "progress":     100,
    "note_id":      note.ID,
    "completed_at": completedAt,
    "updated_at":   completedAt,
  }); err != nil {
    // the final chunk must always leave the session terminal
    s.markFailed(ctx, session, fmt.Sprintf("status update failed: %v", err))
    return fmt.Errorf("Failed to mark session completed: %w", err)
  }

  if err := s.scratch.Remove(session.ScratchPath); err != nil {
    s.log.Warn("Failed to remove scratch file", "session_id", session.ID, "error", err)
  }
  s.dropLock(session.ID)

  s.log.Info("Upload session completed", "session_id", session.ID, "note_id", note.ID)
  s.broadcaster.Send(ctx, session.UserID, sse.SSEEventUploadCompleted, map[string]any{
    "session_id": session.ID,
    "note_id":    note.ID,
  })
  return nil
}

func (s *uploadSessionService) markFailed(ctx context.Context, session *types.UploadSession, detail string) {
  session.Status = types.UploadStatusFailed
  session.ErrorDetail = detail
  if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
    "status":       types.UploadStatusFailed,
    "error_detail": detail,
    "updated_at":   time.Now(),
  }); err != nil {
    s.log.Error("Failed to mark session failed", "session_id", session.ID, "error", err)
  }
  s.dropLock(session.ID)
  s.broadcaster.Send(ctx, session.UserID, sse.SSEEventUploadFailed, map[string]any{
    "session_id": session.ID,
    "detail":     detail,
  })
}

func (s *uploadSessionService) setStatus(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, from string, to string) (*types.UploadSession, error) {
  lock := s.sessionLock(sessionID)
  lock.Lock()
  defer lock.Unlock()

  session, err := s.sessionRepo.GetByIDForUser(ctx, nil, sessionID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load upload session: %w", err)
  }
  if session == nil {
    return nil, fmt.Errorf("%w: upload session %s", ErrNotFound, sessionID)
  }
  if session.Status == to {
    return session, nil
  }
  if session.Status != from {
    return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
  }

  session.Status = to
  if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
    "status":     to,
    "updated_at": time.Now(),
  }); err != nil {
    return nil, fmt.Errorf("Failed to update session status: %w", err)
  }
  return session, nil
}

func (s *uploadSessionService) Pause(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error) {
  return s.setStatus(ctx, userID, sessionID, types.UploadStatusUploading, types.UploadStatusPaused)
}

func (s *uploadSessionService) Resume(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error) {
  return s.setStatus(ctx, userID, sessionID, types.UploadStatusPaused, types.UploadStatusUploading)
}

func (s *uploadSessionService) Delete(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) error {
  lock := s.sessionLock(sessionID)
  lock.Lock()
  defer lock.Unlock()

  session, err := s.sessionRepo.GetByIDForUser(ctx, nil, sessionID, userID)
  if err != nil {
    return fmt.Errorf("Failed to load upload session: %w", err)
  }
  if session == nil {
    return fmt.Errorf("%w: upload session %s", ErrNotFound, sessionID)
  }

  if session.ScratchPath != "" {
    if err := s.scratch.Remove(session.ScratchPath); err != nil {
      s.log.Warn("Failed to remove scratch file", "session_id", session.ID, "error", err)
    }
  }
  if err := s.sessionRepo.FullDeleteByID(ctx, nil, session.ID); err != nil {
    return fmt.Errorf("Failed to delete upload session: %w", err)
  }
  s.dropLock(session.ID)
  return nil
}

func (s *uploadSessionService) GetProgress(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.UploadSession, error) {
  session, err := s.sessionRepo.GetByIDForUser(ctx, nil, sessionID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load upload session: %w", err)
  }
  if session == nil {
    return nil, fmt.Errorf("%w: upload session %s", ErrNotFound, sessionID)
  }
  return session, nil
}

func (s *uploadSessionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.UploadSession, error) {
  sessions, err := s.sessionRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list upload sessions: %w", err)
  }
  return sessions, nil
}

func (s *uploadSessionService) Download(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (io.ReadCloser, *types.Note, error) {
  session, err := s.sessionRepo.GetByIDForUser(ctx, nil, sessionID, userID)
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to load upload session: %w", err)
  }
  if session == nil {
    return nil, nil, fmt.Errorf("%w: upload session %s", ErrNotFound, sessionID)
  }
  if session.Status != types.UploadStatusCompleted || session.NoteID == nil {
    return nil, nil, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
  }

  note, err := s.noteRepo.GetByIDForUser(ctx, nil, *session.NoteID, userID)
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to load note: %w", err)
  }
  if note == nil {
    return nil, nil, fmt.Errorf("%w: note %s", ErrNotFound, *session.NoteID)
  }

  rc, err := s.bucket.DownloadFile(ctx, note.StorageKey)
  if err != nil {
    return nil, nil, fmt.Errorf("Failed to download blob: %w", err)
  }
  return rc, note, nil
}
