package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service maintains expert profiles and their verification flag. The KYC
// review gateway calls into it on approval; there are no implicit
// persistence-layer hooks.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) (*Service, error) {
	if err := db.AutoMigrate(&ExpertProfile{}); err != nil {
		return nil, fmt.Errorf("failed to migrate expert profiles: %w", err)
	}
	return &Service{db: db}, nil
}

// GetByID returns one expert profile.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*ExpertProfile, error) {
	var p ExpertProfile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkVerificationApproved flips the marketplace verification flag with the
// review timestamp.
func (s *Service) MarkVerificationApproved(ctx context.Context, expertID uuid.UUID, verifiedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&ExpertProfile{}).
		Where("id = ?", expertID).
		Updates(map[string]interface{}{
			"verification_status": VerificationApproved,
			"verified_at":         verifiedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark profile verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("expert profile %s not found", expertID)
	}
	return nil
}
