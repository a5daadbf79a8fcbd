package types

import (
	"time"

	"github.com/google/uuid"
)

// Upload session states. Completed and Failed are terminal: once a session
// reaches either, only delete and progress reads are allowed.
const (
	UploadStatusUploading = "uploading"
	UploadStatusPaused    = "paused"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

type UploadSession struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	FileName      string     `gorm:"column:file_name;not null" json:"file_name"`
	FileType      string     `gorm:"column:file_type;not null" json:"file_type"`
	FileSize      int64      `gorm:"column:file_size;not null" json:"file_size"`
	BytesReceived int64      `gorm:"column:bytes_received;not null;default:0" json:"bytes_received"`
	Progress      int        `gorm:"column:progress;not null;default:0" json:"progress"`
	Status        string     `gorm:"column:status;not null;default:'uploading'" json:"status"`
	ScratchPath   string     `gorm:"column:scratch_path" json:"-"`
	NoteID        *uuid.UUID `gorm:"type:uuid;column:note_id" json:"note_id,omitempty"`
	ErrorDetail   string     `gorm:"column:error_detail" json:"error_detail,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (UploadSession) TableName() string { return "upload_session" }

func (s *UploadSession) Terminal() bool {
	return s.Status == UploadStatusCompleted || s.Status == UploadStatusFailed
}
