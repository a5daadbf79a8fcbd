package services

import (
  "fmt"
  "os"
  "path/filepath"

  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/utils"
)

// ScratchStore holds in-flight chunk bytes for an upload session. Each
// session owns exactly one scratch file until finalize or delete.
type ScratchStore interface {
  Create(id uuid.UUID) (string, error)
  Append(path string, data []byte) error
  Read(path string) ([]byte, error)
  Remove(path string) error
}

type diskScratchStore struct {
  log *logger.Logger
  dir string
}

func NewDiskScratchStore(log *logger.Logger) (ScratchStore, error) {
  serviceLog := log.With("service", "ScratchStore")
  dir := utils.GetEnv("UPLOAD_SPOOL_DIR", filepath.Join(os.TempDir(), "notelet-uploads"), log)
  if err := os.MkdirAll(dir, 0o755); err != nil {
    return nil, fmt.Errorf("Failed to create upload spool dir %q: %w", dir, err)
  }
  serviceLog.Info("Upload spool directory ready", "dir", dir)
  return &diskScratchStore{log: serviceLog, dir: dir}, nil
}

func (s *diskScratchStore) Create(id uuid.UUID) (string, error) {
  path := filepath.Join(s.dir, id.String()+".part")
  f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
  if err != nil {
    return "", fmt.Errorf("Failed to create scratch file: %w", err)
  }
  if err := f.Close(); err != nil {
    return "", err
  }
  return path, nil
}

func (s *diskScratchStore) Append(path string, data []byte) error {
  f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
  if err != nil {
    return fmt.Errorf("Failed to open scratch file: %w", err)
  }
  if _, err := f.Write(data); err != nil {
    _ = f.Close()
    return fmt.Errorf("Failed to append to scratch file: %w", err)
  }
  return f.Close()
}

func (s *diskScratchStore) Read(path string) ([]byte, error) {
  data, err := os.ReadFile(path)
  if err != nil {
    return nil, fmt.Errorf("Failed to read scratch file: %w", err)
  }
  return data, nil
}

func (s *diskScratchStore) Remove(path string) error {
  if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
    return err
  }
  return nil
}
