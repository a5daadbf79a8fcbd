package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EnrichmentRun is one queued background enrichment of a note. Runs are
// claimed by the worker loop, so a fire-and-forget enqueue still leaves an
// observable record behind.
const (
	EnrichmentStatusQueued    = "queued"
	EnrichmentStatusRunning   = "running"
	EnrichmentStatusSucceeded = "succeeded"
	EnrichmentStatusFailed    = "failed"
)

type EnrichmentRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	NoteID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"note_id"`
	Status      string         `gorm:"not null;default:'queued'" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	Kinds       datatypes.JSON `gorm:"column:kinds;type:jsonb" json:"kinds,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (EnrichmentRun) TableName() string { return "enrichment_run" }
