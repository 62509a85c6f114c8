package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
)

// MockInsuranceNotifier is a mock implementation of the InsuranceNotifier interface
type MockInsuranceNotifier struct {
	mock.Mock
}

func (m *MockInsuranceNotifier) NotifyInsuranceExpiring(ctx context.Context, expertID uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, expertID, expiresAt)
	return args.Error(0)
}

func seedApproved(t *testing.T, repo *kyc.MemoryRepository, expiry *time.Time) uuid.UUID {
	t.Helper()
	expertID := uuid.New()
	rec := kyc.NewRecord(expertID, time.Now())
	rec.Status = kyc.StatusApproved
	rec.InsuranceExpiry = expiry
	require.NoError(t, repo.Create(context.Background(), rec))
	return expertID
}

func TestSweepRemindsOnMarkDays(t *testing.T) {
	repo := kyc.NewMemoryRepository()
	notifier := new(MockInsuranceNotifier)
	worker := NewReminderWorker(repo, notifier, zap.NewNop())
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }

	in7 := now.AddDate(0, 0, 7)
	in12 := now.AddDate(0, 0, 12)
	today := now

	onMark := seedApproved(t, repo, &in7)
	seedApproved(t, repo, &in12)
	seedApproved(t, repo, nil)
	lapsing := seedApproved(t, repo, &today)

	notifier.On("NotifyInsuranceExpiring", mock.Anything, onMark, mock.AnythingOfType("time.Time")).Return(nil).Once()
	notifier.On("NotifyInsuranceExpiring", mock.Anything, lapsing, mock.AnythingOfType("time.Time")).Return(nil).Once()

	worker.SweepInsuranceExpiry(context.Background())

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "NotifyInsuranceExpiring", 2)
}

func TestSweepSkipsNonApprovedRecords(t *testing.T) {
	repo := kyc.NewMemoryRepository()
	notifier := new(MockInsuranceNotifier)
	worker := NewReminderWorker(repo, notifier, zap.NewNop())
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }

	in7 := now.AddDate(0, 0, 7)
	expertID := uuid.New()
	rec := kyc.NewRecord(expertID, now)
	rec.Status = kyc.StatusInProgress
	rec.InsuranceExpiry = &in7
	require.NoError(t, repo.Create(context.Background(), rec))

	worker.SweepInsuranceExpiry(context.Background())
	notifier.AssertNumberOfCalls(t, "NotifyInsuranceExpiring", 0)
}

func TestIsReminderDay(t *testing.T) {
	for _, d := range []int{30, 14, 7, 1, 0} {
		assert.True(t, isReminderDay(d), "day %d", d)
	}
	for _, d := range []int{31, 15, 2, -1, 90} {
		assert.False(t, isReminderDay(d), "day %d", d)
	}
}
