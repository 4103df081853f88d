package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cronpulse/cronpulse/internal/alert"
	"github.com/cronpulse/cronpulse/internal/api"
	"github.com/cronpulse/cronpulse/internal/config"
	"github.com/cronpulse/cronpulse/internal/database"
	"github.com/cronpulse/cronpulse/internal/jobs"
	"github.com/cronpulse/cronpulse/internal/logging"
	"github.com/cronpulse/cronpulse/internal/models"
	"github.com/cronpulse/cronpulse/internal/store"
	"github.com/cronpulse/cronpulse/internal/sweeper"
	"github.com/cronpulse/cronpulse/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get database connection", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Stores
	monitors := store.NewMonitorStore(db)
	users := store.NewUserStore(db)
	apiKeys := store.NewAPIKeyStore(db)
	settings := store.NewSettingsStore(db)
	resolver := store.NewResolver(settings)

	// Bootstrap the admin account before anything can serve requests
	initializeAdminUser(cfg, users, logger)

	// WebSocket hub for live dashboard events
	hub := websocket.NewHub(cfg.JWTSecret, cfg.CORSOrigins, logger)
	go hub.Run()

	// Alert channels; an unconfigured email transport disables that channel
	sweepOpts := []sweeper.Option{
		sweeper.WithWebhook(alert.NewWebhookSender(cfg.Sweep.WebhookTimeout, logger)),
		sweeper.WithBroadcaster(hub),
	}
	if email := buildEmailSender(cfg, resolver, logger); email != nil {
		sweepOpts = append(sweepOpts, sweeper.WithEmail(email))
	}
	sweep := sweeper.New(monitors, logger, sweepOpts...)

	// Scheduler drives the missed-ping sweep
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddJob(cfg.Sweep.Schedule, "missed-ping-sweep", sweep); err != nil {
		logger.Fatal("failed to schedule sweep", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop(30 * time.Second)

	// Setup API router
	router := api.NewRouter(cfg, api.Deps{
		DB:        db,
		Monitors:  monitors,
		Users:     users,
		APIKeys:   apiKeys,
		Settings:  settings,
		Resolver:  resolver,
		Hub:       hub,
		Scheduler: scheduler,
		Log:       logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initializeAdminUser creates the admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD when no users exist yet.
func initializeAdminUser(cfg *config.Config, users store.UserStore, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := users.Count(ctx)
	if err != nil {
		logger.Error("failed to check existing users", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("no admin credentials in environment, first-run signup required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash admin password", zap.Error(err))
		return
	}

	admin := models.User{
		Email:          cfg.AdminEmail,
		HashedPassword: string(hashed),
		IsAdmin:        true,
	}
	if err := users.Create(ctx, &admin); err != nil {
		logger.Error("failed to create admin user", zap.Error(err))
		return
	}
	logger.Info("admin user created", zap.String("email", cfg.AdminEmail))
}

// buildEmailSender resolves SMTP settings and constructs the email channel.
// Returns nil when the transport is not fully configured.
func buildEmailSender(cfg *config.Config, resolver *store.Resolver, logger *zap.Logger) *alert.EmailSender {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	smtpCfg, err := alert.ResolveSMTPConfig(ctx, resolver, cfg.Sweep.SMTPTimeout)
	if err != nil {
		logger.Error("failed to resolve SMTP settings", zap.Error(err))
		return nil
	}

	sender, err := alert.NewEmailSender(smtpCfg, logger)
	if err != nil {
		logger.Warn("email alerts disabled", zap.Error(err))
		return nil
	}
	return sender
}
