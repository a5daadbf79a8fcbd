package db

import (
  "fmt"

  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/types"
  "github.com/notelet/notelet-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  driver := utils.GetEnv("DB_DRIVER", "postgres", log)

  var dialector gorm.Dialector
  switch driver {
  case "sqlite":
    // Local development fallback for the CRUD surface. The enrichment
    // worker's claim query uses SKIP LOCKED and needs Postgres.
    path := utils.GetEnv("SQLITE_PATH", "notelet.db", log)
    dialector = sqlite.Open(path)
  default:
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "notelet", log)
    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
    dialector = postgres.Open(dsn)
  }

  serviceLog.Info("Connecting to database...", "driver", driver)
  gdb, err := gorm.Open(dialector, &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    serviceLog.Error("Failed to connect to database", "error", err)
    return nil, fmt.Errorf("Failed to connect to database: %w", err)
  }

  return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.UserToken{},
    &types.UploadSession{},
    &types.Note{},
    &types.Folder{},
    &types.EnrichmentRun{},
    &types.DictionaryEntry{},
    &types.MCQSet{},
    &types.PaymentEvent{},
  )
  if err != nil {
    s.log.Error("Auto migration failed", "error", err)
    return err
  }
  return nil
}

func (s *PostgresService) DB() *gorm.DB {
  return s.db
}
