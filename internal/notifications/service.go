package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
	"trade-scout/expert-portal/expert-portal-backend/internal/profile"
)

// EmailSender is the outbound email channel.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ProfileDirectory resolves an expert id to a deliverable contact.
type ProfileDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.ExpertProfile, error)
}

// Preferences gates outbound email per expert. A nil Preferences means every
// channel is on.
type Preferences interface {
	StatusEmailsEnabled(ctx context.Context, expertID uuid.UUID) bool
	ReminderEmailsEnabled(ctx context.Context, expertID uuid.UUID) bool
}

// Service emails experts when their verification status changes. Delivery is
// best effort: a failed send is logged and recorded, never propagated into
// the review transition that triggered it.
type Service struct {
	db       *gorm.DB
	email    EmailSender
	profiles ProfileDirectory
	prefs    Preferences
	logger   *zap.Logger
}

func NewService(db *gorm.DB, email EmailSender, profiles ProfileDirectory, prefs Preferences, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&DeliveryLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification deliveries: %w", err)
	}
	return &Service{db: db, email: email, profiles: profiles, prefs: prefs, logger: logger}, nil
}

// NotifyStatusChange emails the expert about a verification status change.
func (s *Service) NotifyStatusChange(ctx context.Context, expertID uuid.UUID, from, to kyc.Status, reason string) error {
	if s.prefs != nil && !s.prefs.StatusEmailsEnabled(ctx, expertID) {
		return nil
	}
	p, err := s.profiles.GetByID(ctx, expertID)
	if err != nil {
		return fmt.Errorf("failed to resolve expert profile: %w", err)
	}

	subject, body := statusChangeMessage(p.BusinessName, to, reason)
	if subject == "" {
		return nil
	}

	sendErr := s.email.Send(ctx, p.ContactEmail, subject, body)
	s.logDelivery(ctx, expertID, p.ContactEmail, subject, from, to, sendErr)
	if sendErr != nil {
		return fmt.Errorf("failed to send status-change email: %w", sendErr)
	}
	return nil
}

// NotifyInsuranceExpiring reminds a verified expert that their insurance
// policy is about to lapse (or already has).
func (s *Service) NotifyInsuranceExpiring(ctx context.Context, expertID uuid.UUID, expiresAt time.Time) error {
	if s.prefs != nil && !s.prefs.ReminderEmailsEnabled(ctx, expertID) {
		return nil
	}
	p, err := s.profiles.GetByID(ctx, expertID)
	if err != nil {
		return fmt.Errorf("failed to resolve expert profile: %w", err)
	}

	subject := "Your insurance certificate needs renewal"
	body := fmt.Sprintf(
		"Hi %s,\n\nThe insurance policy on file for your verified business expires on %s. Please upload a current certificate to keep your verified status.",
		p.BusinessName, expiresAt.Format("January 2, 2006"))

	sendErr := s.email.Send(ctx, p.ContactEmail, subject, body)
	s.logDelivery(ctx, expertID, p.ContactEmail, subject, kyc.StatusApproved, kyc.StatusApproved, sendErr)
	if sendErr != nil {
		return fmt.Errorf("failed to send insurance reminder: %w", sendErr)
	}
	return nil
}

func (s *Service) logDelivery(ctx context.Context, expertID uuid.UUID, recipient, subject string, from, to kyc.Status, sendErr error) {
	metadata, _ := json.Marshal(map[string]string{
		"from_status": string(from),
		"to_status":   string(to),
	})
	entry := &DeliveryLog{
		ID:        uuid.New(),
		ExpertID:  expertID,
		Recipient: recipient,
		Subject:   subject,
		Status:    DeliverySent,
		Metadata:  metadata,
	}
	if sendErr != nil {
		entry.Status = DeliveryFailed
		entry.Error = sendErr.Error()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("Failed to record notification delivery", zap.Error(err))
	}
}

func statusChangeMessage(businessName string, to kyc.Status, reason string) (subject, body string) {
	switch to {
	case kyc.StatusSubmitted:
		return "Your verification application was received",
			fmt.Sprintf("Hi %s,\n\nWe received your verification application. Our team will review it and get back to you shortly.", businessName)
	case kyc.StatusApproved:
		return "You're verified!",
			fmt.Sprintf("Hi %s,\n\nYour business verification is complete. You can now accept jobs on the marketplace.", businessName)
	case kyc.StatusRejected:
		return "Your verification application was declined",
			fmt.Sprintf("Hi %s,\n\nUnfortunately we could not verify your business.\n\nReason: %s\n\nYou may correct the issue and apply again.", businessName, reason)
	case kyc.StatusResubmissionRequired:
		return "Your verification application needs changes",
			fmt.Sprintf("Hi %s,\n\nYour application needs attention before we can complete the review.\n\nWhat to fix: %s\n\nPlease update the flagged items and resubmit.", businessName, reason)
	}
	return "", ""
}
