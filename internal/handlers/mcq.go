package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/services"
)

type MCQHandler struct {
  mcqService  services.MCQService
  noteService services.NoteService
}

func NewMCQHandler(mcqService services.MCQService, noteService services.NoteService) *MCQHandler {
  return &MCQHandler{mcqService: mcqService, noteService: noteService}
}

// POST /api/mcq-sets (either source_text or note_id)
func (h *MCQHandler) Generate(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  var req struct {
    SourceText    string `json:"source_text"`
    NoteID        string `json:"note_id"`
    Difficulty    string `json:"difficulty"`
    QuestionCount int    `json:"question_count"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }

  sourceText := req.SourceText
  if sourceText == "" && req.NoteID != "" {
    noteID, err := uuid.Parse(req.NoteID)
    if err != nil {
      RespondError(c, http.StatusBadRequest, "bad_request", err)
      return
    }
    note, err := h.noteService.Get(c.Request.Context(), userID, noteID)
    if err != nil {
      RespondServiceError(c, err)
      return
    }
    sourceText = note.ExtractedText
  }

  set, err := h.mcqService.Generate(c.Request.Context(), userID, sourceText, req.Difficulty, req.QuestionCount)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, set)
}

// GET /api/mcq-sets
func (h *MCQHandler) List(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  sets, err := h.mcqService.List(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"sets": sets})
}

// GET /api/mcq-sets/:id
func (h *MCQHandler) Get(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  setID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  set, err := h.mcqService.Get(c.Request.Context(), userID, setID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, set)
}

// DELETE /api/mcq-sets/:id
func (h *MCQHandler) Delete(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  setID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  if err := h.mcqService.Delete(c.Request.Context(), userID, setID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}
