package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Note struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title              string         `gorm:"not null" json:"title"`
	StorageKey         string         `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL            string         `gorm:"column:file_url" json:"file_url"`
	MimeType           string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes          int64          `gorm:"column:size_bytes" json:"size_bytes"`
	ExtractedText      string         `gorm:"column:extracted_text;type:text" json:"-"`
	AnalysisText       string         `gorm:"column:analysis_text;type:text" json:"analysis_text,omitempty"`
	AnalysisStructured datatypes.JSON `gorm:"column:analysis_structured;type:jsonb" json:"analysis_structured,omitempty"`
	IsFavorite         bool           `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	FolderID           *uuid.UUID     `gorm:"type:uuid;column:folder_id;index" json:"folder_id,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Note) TableName() string { return "note" }
