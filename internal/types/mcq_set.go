package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MCQSet struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceText    string         `gorm:"column:source_text;type:text;not null" json:"source_text"`
	Difficulty    string         `gorm:"not null;default:'intermediate'" json:"difficulty"`
	QuestionCount int            `gorm:"column:question_count;not null;default:10" json:"question_count"`
	Questions     datatypes.JSON `gorm:"type:jsonb" json:"questions"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (MCQSet) TableName() string { return "mcq_set" }
