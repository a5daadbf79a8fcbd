package handlers

import (
  "io"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/requestdata"
  "github.com/notelet/notelet-backend/internal/services"
)

type UploadHandler struct {
  log           *logger.Logger
  uploadService services.UploadSessionService
}

func NewUploadHandler(log *logger.Logger, uploadService services.UploadSessionService) *UploadHandler {
  return &UploadHandler{
    log:           log.With("handler", "UploadHandler"),
    uploadService: uploadService,
  }
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return uuid.Nil, false
  }
  return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
  id, err := uuid.Parse(c.Param(name))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return uuid.Nil, false
  }
  return id, true
}

// POST /api/uploads
func (h *UploadHandler) InitSession(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  var req struct {
    FileName string `json:"file_name"`
    FileType string `json:"file_type"`
    FileSize int64  `json:"file_size"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  session, chunkSize, err := h.uploadService.Init(c.Request.Context(), userID, req.FileName, req.FileType, req.FileSize)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"session": session, "chunk_size": chunkSize})
}

// POST /api/uploads/:id/chunks (multipart: chunk, chunk_index, total_chunks)
func (h *UploadHandler) AppendChunk(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }

  chunkIndex, err := strconv.Atoi(c.PostForm("chunk_index"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  totalChunks, err := strconv.Atoi(c.PostForm("total_chunks"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }

  fileHeader, err := c.FormFile("chunk")
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

  progress, err := h.uploadService.AppendChunk(c.Request.Context(), userID, sessionID, chunkIndex, totalChunks, data)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, progress)
}

// POST /api/uploads/:id/pause
func (h *UploadHandler) Pause(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  session, err := h.uploadService.Pause(c.Request.Context(), userID, sessionID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, session)
}

// POST /api/uploads/:id/resume
func (h *UploadHandler) Resume(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  session, err := h.uploadService.Resume(c.Request.Context(), userID, sessionID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, session)
}

// DELETE /api/uploads/:id
func (h *UploadHandler) Delete(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  if err := h.uploadService.Delete(c.Request.Context(), userID, sessionID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}

// GET /api/uploads/:id
func (h *UploadHandler) GetProgress(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  session, err := h.uploadService.GetProgress(c.Request.Context(), userID, sessionID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, session)
}

// GET /api/uploads
func (h *UploadHandler) List(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessions, err := h.uploadService.ListForUser(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"sessions": sessions})
}

// GET /api/uploads/:id/download
func (h *UploadHandler) Download(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sessionID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  rc, note, err := h.uploadService.Download(c.Request.Context(), userID, sessionID)
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
