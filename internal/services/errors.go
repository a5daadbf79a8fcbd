package services

import (
  "errors"

  "gorm.io/gorm"
)

// Error taxonomy shared by the HTTP layer. Services wrap these sentinels with
// context via fmt.Errorf("...: %w", ...); handlers translate them to status
// codes (ErrNotFound 404, ErrValidation 400, ErrInvalidState 400, rest 500).
var (
  ErrNotFound     = errors.New("not found")
  ErrInvalidState = errors.New("invalid state")
  ErrValidation   = errors.New("validation failed")
)

func isNotFoundErr(err error) bool {
  return errors.Is(err, gorm.ErrRecordNotFound)
}
