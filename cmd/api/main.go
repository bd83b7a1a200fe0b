package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/api"
	"github.com/scoutlink/backend/internal/auth"
	"github.com/scoutlink/backend/internal/config"
	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/internal/fcm"
	"github.com/scoutlink/backend/internal/presence"
	"github.com/scoutlink/backend/internal/realtime"
	"github.com/scoutlink/backend/internal/repository"
	"github.com/scoutlink/backend/internal/storage"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting ScoutLink messaging API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()
	db, err := initDatabase(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	repo := repository.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := initRedis(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	tracker := presence.NewTracker(redisClient, cfg.Redis.PresenceTTL)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	// Avatar storage is optional; without it resolution falls back to
	// profile fields and generated placeholders.
	var avatarStore domain.AvatarStore
	var s3Store *storage.S3AvatarStore
	if cfg.Storage.Endpoint != "" {
		s3Store, err = storage.NewS3AvatarStore(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize avatar storage", zap.Error(err))
		}
		avatarStore = s3Store
		logger.Info("Avatar storage initialized", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		logger.Warn("No avatar storage configured")
	}

	// Push is optional too.
	var pusher domain.Pusher
	fcmClient, err := fcm.NewClient(ctx, logger, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Warn("Failed to initialize Firebase client, push notifications disabled", zap.Error(err))
	} else {
		pusher = fcmClient
		logger.Info("Firebase client initialized")
	}

	bus := realtime.NewBus(logger)

	resolver := domain.NewIdentityResolver(repo, avatarStore, logger)
	directoryService := domain.NewDirectoryService(repo, resolver, tracker, logger)
	conversationService := domain.NewConversationService(repo, repo, repo, resolver, bus, logger)
	notificationService := domain.NewNotificationService(repo, resolver, pusher, bus, logger)
	messageService := domain.NewMessageService(repo, repo, resolver, avatarStore, notificationService, bus, logger)

	wsManager := api.NewWebSocketManager(conversationService, messageService, notificationService, tracker, logger)
	go wsManager.Run()

	healthHandler := api.NewHealthHandler(db, redisClient)
	contactHandler := api.NewContactHandler(directoryService, logger)
	conversationHandler := api.NewConversationHandler(conversationService, messageService, resolver, wsManager, logger)
	notificationHandler := api.NewNotificationHandler(notificationService, logger)
	profileHandler := api.NewProfileHandler(s3Store, logger)

	router := api.NewRouter(
		healthHandler,
		contactHandler,
		conversationHandler,
		notificationHandler,
		profileHandler,
		jwtManager,
		cfg.Server.AllowedOrigins,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
