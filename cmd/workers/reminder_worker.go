package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trade-scout/expert-portal/expert-portal-backend/internal/config"
	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
	"trade-scout/expert-portal/expert-portal-backend/internal/notifications"
	"trade-scout/expert-portal/expert-portal-backend/internal/profile"
	"trade-scout/expert-portal/expert-portal-backend/internal/settings"
)

// reminderSchedule runs the sweep every morning before business hours.
const reminderSchedule = "0 6 * * *"

// reminderDays are the days-to-expiry marks at which an expert is emailed.
// The sweep is stateless; pinning reminders to fixed marks keeps a daily run
// from emailing the same expert every day.
var reminderDays = []int{30, 14, 7, 1, 0}

// InsuranceNotifier delivers the expiry reminder email.
type InsuranceNotifier interface {
	NotifyInsuranceExpiring(ctx context.Context, expertID uuid.UUID, expiresAt time.Time) error
}

// ReminderWorker sweeps approved verification records and reminds experts
// whose insurance certificate is about to lapse.
type ReminderWorker struct {
	repo     kyc.Repository
	notifier InsuranceNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderWorker(repo kyc.Repository, notifier InsuranceNotifier, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SweepInsuranceExpiry emails every approved expert whose insurance expiry
// falls on one of the reminder marks.
func (w *ReminderWorker) SweepInsuranceExpiry(ctx context.Context) {
	records, err := w.repo.ListByStatus(ctx, kyc.StatusApproved)
	if err != nil {
		w.logger.Error("Failed to list approved records for expiry sweep", zap.Error(err))
		return
	}

	today := startOfDay(w.now())
	reminded := 0
	for _, rec := range records {
		if rec.InsuranceExpiry == nil {
			continue
		}
		daysLeft := int(startOfDay(*rec.InsuranceExpiry).Sub(today).Hours() / 24)
		if !isReminderDay(daysLeft) {
			continue
		}
		if err := w.notifier.NotifyInsuranceExpiring(ctx, rec.ExpertID, *rec.InsuranceExpiry); err != nil {
			w.logger.Error("Failed to send insurance expiry reminder",
				zap.String("expert_id", rec.ExpertID.String()),
				zap.Error(err))
			continue
		}
		reminded++
	}

	w.logger.Info("Insurance expiry sweep finished",
		zap.Int("approved_records", len(records)),
		zap.Int("reminders_sent", reminded))
}

func isReminderDay(daysLeft int) bool {
	for _, d := range reminderDays {
		if daysLeft == d {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	profileService, err := profile.NewService(gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize profile service", zap.Error(err))
	}
	settingsService, err := settings.NewService(gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize settings service", zap.Error(err))
	}
	emailSender, err := notifications.NewSESEmailSender(ctx, cfg.Email.Region, cfg.Email.Sender)
	if err != nil {
		logger.Fatal("Failed to initialize email sender", zap.Error(err))
	}
	notificationService, err := notifications.NewService(gormDB, emailSender, profileService, settingsService, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notification service", zap.Error(err))
	}

	worker := NewReminderWorker(kyc.NewRepository(db), notificationService, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(reminderSchedule, func() {
		worker.SweepInsuranceExpiry(ctx)
	}); err != nil {
		logger.Fatal("Failed to schedule expiry sweep", zap.Error(err))
	}
	scheduler.Start()
	logger.Info("Reminder worker started", zap.String("schedule", reminderSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down reminder worker...")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("Reminder worker stopped")
}
