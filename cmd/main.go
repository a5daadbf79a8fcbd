package main

import (
  "context"
  "fmt"
  "os"

  "github.com/joho/godotenv"

  "github.com/notelet/notelet-backend/internal/db"
  "github.com/notelet/notelet-backend/internal/handlers"
  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/middleware"
  "github.com/notelet/notelet-backend/internal/observability"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/server"
  "github.com/notelet/notelet-backend/internal/services"
  "github.com/notelet/notelet-backend/internal/sse"
  "github.com/notelet/notelet-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx := context.Background()

  // Tracing
  shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
    ServiceName: "notelet-backend",
    Environment: os.Getenv("APP_ENV"),
    Version:     os.Getenv("APP_VERSION"),
  })
  if shutdownOtel != nil {
    defer func() {
      _ = shutdownOtel(context.Background())
    }()
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  uploadSessionRepo := repos.NewUploadSessionRepo(thePG, log)
  noteRepo := repos.NewNoteRepo(thePG, log)
  folderRepo := repos.NewFolderRepo(thePG, log)
  enrichmentRunRepo := repos.NewEnrichmentRunRepo(thePG, log)
  dictionaryRepo := repos.NewDictionaryRepo(thePG, log)
  mcqSetRepo := repos.NewMCQSetRepo(thePG, log)
  paymentEventRepo := repos.NewPaymentEventRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  sseBus, err := sse.NewBusFromEnv(log)
  if err != nil {
    log.Warn("SSE bus init failed; running hub in-process only", "error", err)
    sseBus = nil
  }
  if sseBus != nil {
    go sseBus.Run(ctx, sseHub)
  }
  broadcaster := &sse.Broadcaster{Hub: sseHub, Bus: sseBus}

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Error("Could not init BucketService", "error", err)
    os.Exit(1)
  }
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Error("Could not init OpenAIClient", "error", err)
    os.Exit(1)
  }
  scratchStore, err := services.NewDiskScratchStore(log)
  if err != nil {
    log.Error("Could not init scratch store", "error", err)
    os.Exit(1)
  }

  authService := services.NewAuthService(log, userRepo, userTokenRepo)
  enrichmentService := services.NewEnrichmentService(log, enrichmentRunRepo, noteRepo, openaiClient, broadcaster)
  enrichmentService.StartWorker(ctx)
  uploadService := services.NewUploadSessionService(log, uploadSessionRepo, noteRepo, scratchStore, bucketService, enrichmentService, broadcaster)
  noteService := services.NewNoteService(log, noteRepo, folderRepo, bucketService, enrichmentService)
  folderService := services.NewFolderService(log, folderRepo, noteRepo)
  dictionaryService := services.NewDictionaryService(log, dictionaryRepo, openaiClient)
  mcqService := services.NewMCQService(log, mcqSetRepo, openaiClient)
  paymentService := services.NewPaymentService(log, paymentEventRepo)

  // Handlers
  log.Info("Setting up Handlers from main...")
  healthcheckHandler := handlers.NewHealthcheckHandler()
  authHandler := handlers.NewAuthHandler(authService)
  uploadHandler := handlers.NewUploadHandler(log, uploadService)
  noteHandler := handlers.NewNoteHandler(log, noteService, enrichmentService)
  folderHandler := handlers.NewFolderHandler(folderService)
  dictionaryHandler := handlers.NewDictionaryHandler(dictionaryService)
  mcqHandler := handlers.NewMCQHandler(mcqService, noteService)
  paymentHandler := handlers.NewPaymentHandler(log, paymentService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  router := server.NewRouter(server.RouterConfig{
    AllowedOrigins:     server.ParseOrigins(utils.GetEnv("CORS_ORIGINS", "", log)),
    AuthMiddleware:     authMiddleware,
    HealthcheckHandler: healthcheckHandler,
    AuthHandler:        authHandler,
    UploadHandler:      uploadHandler,
    NoteHandler:        noteHandler,
    FolderHandler:      folderHandler,
    DictionaryHandler:  dictionaryHandler,
    MCQHandler:         mcqHandler,
    PaymentHandler:     paymentHandler,
    SSEHandler:         sseHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  log.Info("Starting server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
