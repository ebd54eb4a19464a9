package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kopma-dev/kopma-api/internal/config"
	"github.com/kopma-dev/kopma-api/internal/database"
	"github.com/kopma-dev/kopma-api/internal/handler"
	"github.com/kopma-dev/kopma-api/internal/middleware"
	"github.com/kopma-dev/kopma-api/internal/models"
	"github.com/kopma-dev/kopma-api/internal/repository"
	"github.com/kopma-dev/kopma-api/internal/router"
	"github.com/kopma-dev/kopma-api/internal/service"
	"github.com/kopma-dev/kopma-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.ActivityLog{}, &models.Event{}, &models.EventAttendance{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, credential email cooldown disabled")
	}

	smtp := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	eventRepo := repository.NewEventRepository(db)

	notificationService := service.NewNotificationService(smtp, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(userRepo, notificationService, activityService, validate, redisClient, service.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		TokenTTL:        cfg.SessionTokenTTL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
		OneTimeCodeTTL:  cfg.OneTimeCodeTTL,
		AppBaseURL:      cfg.AppBaseURL,
		RequestCooldown: cfg.MailCooldown,
	}, logger)
	applicationService := service.NewApplicationService(userRepo, notificationService, activityService, validate, logger)
	uploadService := service.NewUploadService(cfg.UploadDir, cfg.UploadMaxSizeMB, logger)
	eventService := service.NewEventService(eventRepo, userRepo, validate, logger)

	authHandler := handler.NewAuthHandler(authService, uploadService, logger)
	applicationHandler := handler.NewApplicationHandler(applicationService, logger)
	adminHandler := handler.NewAdminHandler(applicationService, activityService, logger)
	eventHandler := handler.NewEventHandler(eventService, uploadService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        authHandler,
		ApplicationHandler: applicationHandler,
		AdminHandler:       adminHandler,
		EventHandler:       eventHandler,
		Users:              userRepo,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
