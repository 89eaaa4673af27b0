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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/playhall/lobby-chat-api/internal/config"
	"github.com/playhall/lobby-chat-api/internal/database"
	"github.com/playhall/lobby-chat-api/internal/handler"
	"github.com/playhall/lobby-chat-api/internal/middleware"
	"github.com/playhall/lobby-chat-api/internal/models"
	"github.com/playhall/lobby-chat-api/internal/repository"
	"github.com/playhall/lobby-chat-api/internal/router"
	"github.com/playhall/lobby-chat-api/internal/service"
	"github.com/playhall/lobby-chat-api/pkg/googleauth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.ChatMessage{}, &models.User{}); err != nil {
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
		logger.Warn().Msg("redis url not configured, message fanout is limited to this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)

	chatService := service.NewChatService(messageRepo, redisClient, natsConn, cfg.EventChannelBase, cfg.DefaultHistoryLimit, logger)
	authService := service.NewAuthService(userRepo, googleauth.New(cfg.GoogleClientID), cfg.SessionSecret, cfg.SessionTTL, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chatService.Start(runCtx)

	chatHandler := handler.NewChatHandler(chatService, validate, logger)
	authHandler := handler.NewAuthHandler(authService, validate, cfg.SessionCookieName, cfg.SessionTTL, cfg.IsProduction(), logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:      &logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler: chatHandler,
		AuthHandler: authHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(runCtx, app)
}

func waitForShutdown(runCtx context.Context, app *fiber.App) {
	<-runCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
