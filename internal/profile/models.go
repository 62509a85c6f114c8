package profile

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the profile-level verification flag shown in the
// marketplace. It mirrors the outcome of the KYC review, not its progress.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// ExpertProfile is the marketplace-facing identity of a service provider.
type ExpertProfile struct {
	ID                 uuid.UUID          `json:"id" gorm:"primaryKey;type:uuid"`
	UserID             uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index"`
	BusinessName       string             `json:"business_name" gorm:"not null"`
	ContactEmail       string             `json:"contact_email" gorm:"not null"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"default:'pending';index"`
	VerifiedAt         *time.Time         `json:"verified_at"`
	CreatedAt          time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ExpertProfile) TableName() string {
	return "expert_profiles"
}
