package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trade-scout/expert-portal/expert-portal-backend/internal/auth"
	"trade-scout/expert-portal/expert-portal-backend/internal/config"
	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
	"trade-scout/expert-portal/expert-portal-backend/internal/notifications"
	"trade-scout/expert-portal/expert-portal-backend/internal/profile"
	"trade-scout/expert-portal/expert-portal-backend/internal/reports"
	"trade-scout/expert-portal/expert-portal-backend/internal/settings"
	"trade-scout/expert-portal/expert-portal-backend/pkg/storage"
	"trade-scout/expert-portal/expert-portal-backend/pkg/vault"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Security.VaultSecret == "" {
		logger.Fatal("VAULT_SECRET must be set")
	}

	ctx := context.Background()

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	// Sensitive-field vault
	fieldVault, err := vault.New(cfg.Security.VaultSecret)
	if err != nil {
		logger.Fatal("Failed to initialize vault", zap.Error(err))
	}

	// Object storage for verification documents
	s3Client, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Profile module
	profileService, err := profile.NewService(gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize profile service", zap.Error(err))
	}

	// Settings module
	settingsService, err := settings.NewService(gormDB)
	if err != nil {
		logger.Fatal("Failed to initialize settings service", zap.Error(err))
	}
	settingsHandler := settings.NewHandler(settingsService, logger)

	// Notifications module
	emailSender, err := notifications.NewSESEmailSender(ctx, cfg.Email.Region, cfg.Email.Sender)
	if err != nil {
		logger.Fatal("Failed to initialize email sender", zap.Error(err))
	}
	notificationService, err := notifications.NewService(gormDB, emailSender, profileService, settingsService, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notification service", zap.Error(err))
	}

	// KYC verification module
	kycRepo := kyc.NewRepository(db)
	docManager := kyc.NewDocumentManager(kycRepo, s3Client, cfg.Storage.DocumentsBucket, cfg.Storage.MaxUploadBytes, logger)
	kycService := kyc.NewService(kycRepo, docManager, fieldVault, profileService, notificationService, logger)
	kycHandler := kyc.NewHandler(kycService, logger)
	reportsHandler := reports.NewHandler(kycService, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		kycHandler.RegisterRoutes(api)
		settingsHandler.RegisterRoutes(api)

		adminAPI := api.Group("/admin")
		adminAPI.Use(auth.RequireRole(cfg.Security.AdminRoleClaim))
		kycHandler.RegisterAdminRoutes(adminAPI)
		reportsHandler.RegisterRoutes(adminAPI)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
