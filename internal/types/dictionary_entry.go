package types

import (
	"time"

	"github.com/google/uuid"
)

type DictionaryEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Word      string    `gorm:"not null" json:"word"`
	Meaning   string    `gorm:"type:text;not null" json:"meaning"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DictionaryEntry) TableName() string { return "dictionary_entry" }
