package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Provider  string         `gorm:"not null" json:"provider"`
	EventType string         `gorm:"column:event_type" json:"event_type"`
	OrderRef  string         `gorm:"column:order_ref" json:"order_ref"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_event" }
