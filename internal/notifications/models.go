package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeliveryStatus tracks one outbound email
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLog records every notification attempt for audit and support.
type DeliveryLog struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	ExpertID  uuid.UUID      `json:"expert_id" gorm:"type:uuid;not null;index"`
	Recipient string         `json:"recipient" gorm:"not null"`
	Subject   string         `json:"subject" gorm:"not null"`
	Status    DeliveryStatus `json:"status" gorm:"not null"`
	Error     string         `json:"error,omitempty"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	SentAt    time.Time      `json:"sent_at" gorm:"autoCreateTime"`
}

func (DeliveryLog) TableName() string {
	return "notification_deliveries"
}
