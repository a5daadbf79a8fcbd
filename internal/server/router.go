package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/notelet/notelet-backend/internal/handlers"
  "github.com/notelet/notelet-backend/internal/middleware"
)

type RouterConfig struct {
  AllowedOrigins []string

  AuthMiddleware *middleware.AuthMiddleware

  HealthcheckHandler *handlers.HealthcheckHandler
  AuthHandler        *handlers.AuthHandler
  UploadHandler      *handlers.UploadHandler
  NoteHandler        *handlers.NoteHandler
  FolderHandler      *handlers.FolderHandler
  DictionaryHandler  *handlers.DictionaryHandler
  MCQHandler         *handlers.MCQHandler
  PaymentHandler     *handlers.PaymentHandler
  SSEHandler         *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware("notelet-backend"))

  origins := cfg.AllowedOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000", "http://localhost:5173"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Signature"},
    AllowCredentials: true,
  }))

  // Public
  router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
    api.POST("/refresh", cfg.AuthHandler.Refresh)
    api.POST("/payments/webhook/:provider", cfg.PaymentHandler.Webhook)
  }

  // Protected
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())

  protected.POST("/logout", cfg.AuthHandler.Logout)

  protected.GET("/events", cfg.SSEHandler.Stream)

  protected.POST("/uploads", cfg.UploadHandler.InitSession)
  protected.GET("/uploads", cfg.UploadHandler.List)
  protected.POST("/uploads/:id/chunks", cfg.UploadHandler.AppendChunk)
  protected.POST("/uploads/:id/pause", cfg.UploadHandler.Pause)
  protected.POST("/uploads/:id/resume", cfg.UploadHandler.Resume)
  protected.GET("/uploads/:id", cfg.UploadHandler.GetProgress)
  protected.GET("/uploads/:id/download", cfg.UploadHandler.Download)
  protected.DELETE("/uploads/:id", cfg.UploadHandler.Delete)

  protected.GET("/notes", cfg.NoteHandler.List)
  protected.GET("/notes/search", cfg.NoteHandler.Search)
  protected.POST("/notes/upload", cfg.NoteHandler.Upload)
  protected.GET("/notes/:id", cfg.NoteHandler.Get)
  protected.PATCH("/notes/:id", cfg.NoteHandler.Update)
  protected.DELETE("/notes/:id", cfg.NoteHandler.Delete)
  protected.GET("/notes/:id/download", cfg.NoteHandler.Download)
  protected.GET("/notes/:id/url", cfg.NoteHandler.DownloadURL)
  protected.GET("/notes/:id/enrichment", cfg.NoteHandler.EnrichmentRuns)

  protected.POST("/folders", cfg.FolderHandler.Create)
  protected.GET("/folders", cfg.FolderHandler.List)
  protected.PATCH("/folders/:id", cfg.FolderHandler.Update)
  protected.DELETE("/folders/:id", cfg.FolderHandler.Delete)

  protected.POST("/dictionary", cfg.DictionaryHandler.Add)
  protected.POST("/dictionary/lookup", cfg.DictionaryHandler.Lookup)
  protected.GET("/dictionary", cfg.DictionaryHandler.List)
  protected.PATCH("/dictionary/:id", cfg.DictionaryHandler.Update)
  protected.DELETE("/dictionary/:id", cfg.DictionaryHandler.Delete)

  protected.POST("/mcq-sets", cfg.MCQHandler.Generate)
  protected.GET("/mcq-sets", cfg.MCQHandler.List)
  protected.GET("/mcq-sets/:id", cfg.MCQHandler.Get)
  protected.DELETE("/mcq-sets/:id", cfg.MCQHandler.Delete)

  protected.GET("/payments/events", cfg.PaymentHandler.ListEvents)

  return router
}

// ParseOrigins splits a comma separated origin list from the environment.
func ParseOrigins(raw string) []string {
  parts := strings.Split(raw, ",")
  out := make([]string, 0, len(parts))
  for _, p := range parts {
    p = strings.TrimSpace(p)
    if p != "" {
      out = append(out, p)
    }
  }
  return out
}
