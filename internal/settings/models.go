package settings

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreferences controls which emails an expert receives. Both
// channels default to on; a row exists only once the expert has changed
// something.
type NotificationPreferences struct {
	ExpertID       uuid.UUID `json:"expert_id" gorm:"primaryKey;type:uuid"`
	StatusEmails   bool      `json:"status_emails" gorm:"not null;default:true"`
	ReminderEmails bool      `json:"reminder_emails" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

func defaultPreferences(expertID uuid.UUID) *NotificationPreferences {
	return &NotificationPreferences{
		ExpertID:       expertID,
		StatusEmails:   true,
		ReminderEmails: true,
	}
}
