package handlers

import (
  "io"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/services"
)

type NoteHandler struct {
  log               *logger.Logger
  noteService       services.NoteService
  enrichmentService services.EnrichmentService
}

func NewNoteHandler(log *logger.Logger, noteService services.NoteService, enrichmentService services.EnrichmentService) *NoteHandler {
  return &NoteHandler{
    log:               log.With("handler", "NoteHandler"),
    noteService:       noteService,
    enrichmentService: enrichmentService,
  }
}

// GET /api/notes
func (h *NoteHandler) List(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  notes, err := h.noteService.List(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"notes": notes})
}

// GET /api/notes/search?q=...&limit=...
func (h *NoteHandler) Search(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  limit, _ := strconv.Atoi(c.Query("limit"))
  notes, err := h.noteService.Search(c.Request.Context(), userID, c.Query("q"), limit)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"notes": notes})
}

// GET /api/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  note, err := h.noteService.Get(c.Request.Context(), userID, noteID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, note)
}

// PATCH /api/notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  var req struct {
    Title      *string    `json:"title"`
    IsFavorite *bool      `json:"is_favorite"`
    FolderID   *uuid.UUID `json:"folder_id"`
    ClearFolder bool      `json:"clear_folder"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }

  ctx := c.Request.Context()
  if req.Title != nil {
    if err := h.noteService.Rename(ctx, userID, noteID, *req.Title); err != nil {
      RespondServiceError(c, err)
      return
    }
  }
  if req.IsFavorite != nil {
    if err := h.noteService.SetFavorite(ctx, userID, noteID, *req.IsFavorite); err != nil {
      RespondServiceError(c, err)
      return
    }
  }
  if req.FolderID != nil || req.ClearFolder {
    target := req.FolderID
    if req.ClearFolder {
      target = nil
    }
    if err := h.noteService.MoveToFolder(ctx, userID, noteID, target); err != nil {
      RespondServiceError(c, err)
      return
    }
  }

  note, err := h.noteService.Get(ctx, userID, noteID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, note)
}

// DELETE /api/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  if err := h.noteService.Delete(c.Request.Context(), userID, noteID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}

// POST /api/notes/upload (multipart: file) single-shot path for small files
func (h *NoteHandler) Upload(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  fileHeader, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  f, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  defer f.Close()
  data, err := io.ReadAll(f)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }

  note, err := h.noteService.Upload(c.Request.Context(), userID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, note)
}

// GET /api/notes/:id/download
func (h *NoteHandler) Download(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  rc, note, err := h.noteService.Download(c.Request.Context(), userID, noteID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  defer rc.Close()

  c.Header("Content-Disposition", "attachment; filename=\""+note.Title+"\"")
  c.Header("Content-Type", note.MimeType)
  if _, err := io.Copy(c.Writer, rc); err != nil {
    h.log.Warn("Download stream interrupted", "note_id", note.ID, "error", err)
  }
}

// GET /api/notes/:id/url
func (h *NoteHandler) DownloadURL(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  url, err := h.noteService.DownloadURL(c.Request.Context(), userID, noteID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"url": url, "expires_in": int(services.DownloadURLTTL.Seconds())})
}

// GET /api/notes/:id/enrichment
func (h *NoteHandler) EnrichmentRuns(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  noteID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  runs, err := h.enrichmentService.RunsForNote(c.Request.Context(), userID, noteID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"runs": runs})
}
