package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/notelet/notelet-backend/internal/services"
)

type DictionaryHandler struct {
  dictionaryService services.DictionaryService
}

func NewDictionaryHandler(dictionaryService services.DictionaryService) *DictionaryHandler {
  return &DictionaryHandler{dictionaryService: dictionaryService}
}

// POST /api/dictionary
func (h *DictionaryHandler) Add(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  var req struct {
    Word    string `json:"word"`
    Meaning string `json:"meaning"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  entry, err := h.dictionaryService.Add(c.Request.Context(), userID, req.Word, req.Meaning)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, entry)
}

// POST /api/dictionary/lookup
func (h *DictionaryHandler) Lookup(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  var req struct {
    Word string `json:"word"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  entry, err := h.dictionaryService.Lookup(c.Request.Context(), userID, req.Word)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, entry)
}

// GET /api/dictionary?q=...&limit=...
func (h *DictionaryHandler) List(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  if q := c.Query("q"); q != "" {
    limit, _ := strconv.Atoi(c.Query("limit"))
    entries, err := h.dictionaryService.Search(c.Request.Context(), userID, q, limit)
    if err != nil {
      RespondServiceError(c, err)
      return
    }
    RespondOK(c, gin.H{"entries": entries})
    return
  }
  entries, err := h.dictionaryService.List(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"entries": entries})
}

// PATCH /api/dictionary/:id
func (h *DictionaryHandler) Update(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  entryID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  var req struct {
    Meaning string `json:"meaning"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  if err := h.dictionaryService.Update(c.Request.Context(), userID, entryID, req.Meaning); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"updated": true})
}

// DELETE /api/dictionary/:id
func (h *DictionaryHandler) Delete(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  entryID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  if err := h.dictionaryService.Delete(c.Request.Context(), userID, entryID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}
