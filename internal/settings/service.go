package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service stores per-expert notification preferences.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&NotificationPreferences{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification preferences: %w", err)
	}
	return &Service{db: db}, nil
}

// GetNotifications returns the expert's preferences, falling back to the
// defaults when the expert never changed them.
func (s *Service) GetNotifications(ctx context.Context, expertID uuid.UUID) (*NotificationPreferences, error) {
	var prefs NotificationPreferences
	err := s.db.WithContext(ctx).First(&prefs, "expert_id = ?", expertID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultPreferences(expertID), nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdateNotifications upserts the expert's preferences.
func (s *Service) UpdateNotifications(ctx context.Context, prefs *NotificationPreferences) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "expert_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status_emails", "reminder_emails", "updated_at"}),
		}).
		Create(prefs).Error
}

// StatusEmailsEnabled reports whether status-change emails may be sent. A
// lookup failure counts as enabled so a storage blip never silences the
// review pipeline.
func (s *Service) StatusEmailsEnabled(ctx context.Context, expertID uuid.UUID) bool {
	prefs, err := s.GetNotifications(ctx, expertID)
	if err != nil {
		return true
	}
	return prefs.StatusEmails
}

// ReminderEmailsEnabled reports whether expiry and draft reminders may be sent.
func (s *Service) ReminderEmailsEnabled(ctx context.Context, expertID uuid.UUID) bool {
	prefs, err := s.GetNotifications(ctx, expertID)
	if err != nil {
		return true
	}
	return prefs.ReminderEmails
}
