package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/notelet/notelet-backend/internal/services"
)

type FolderHandler struct {
  folderService services.FolderService
}

func NewFolderHandler(folderService services.FolderService) *FolderHandler {
  return &FolderHandler{folderService: folderService}
}

// POST /api/folders
func (h *FolderHandler) Create(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  var req struct {
    Name  string `json:"name"`
    Color string `json:"color"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  folder, err := h.folderService.Create(c.Request.Context(), userID, req.Name, req.Color)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, folder)
}

// GET /api/folders
func (h *FolderHandler) List(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  folders, err := h.folderService.List(c.Request.Context(), userID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"folders": folders})
}

// PATCH /api/folders/:id
func (h *FolderHandler) Update(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  folderID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  var req struct {
    Name  string `json:"name"`
    Color string `json:"color"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  if err := h.folderService.Rename(c.Request.Context(), userID, folderID, req.Name, req.Color); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"updated": true})
}

// DELETE /api/folders/:id
func (h *FolderHandler) Delete(c *gin.Context) {
  userID, ok := currentUserID(c)
  if !ok {
    return
  }
  folderID, ok := pathUUID(c, "id")
  if !ok {
    return
  }
  if err := h.folderService.Delete(c.Request.Context(), userID, folderID); err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"deleted": true})
}
