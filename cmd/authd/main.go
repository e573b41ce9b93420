package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mortiscope/mortiscope-web-sub011/internal/config"
	"github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository/postgres"
	redisrepo "github.com/mortiscope/mortiscope-web-sub011/internal/domain/repository/redis"
	"github.com/mortiscope/mortiscope-web-sub011/internal/edge"
	"github.com/mortiscope/mortiscope-web-sub011/internal/events"
	httphandler "github.com/mortiscope/mortiscope-web-sub011/internal/handler/http"
	"github.com/mortiscope/mortiscope-web-sub011/internal/logger"
	"github.com/mortiscope/mortiscope-web-sub011/internal/metrics"
	"github.com/mortiscope/mortiscope-web-sub011/internal/ratelimit"
	"github.com/mortiscope/mortiscope-web-sub011/internal/security"
	"github.com/mortiscope/mortiscope-web-sub011/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Secrets missing or malformed: fail fast before serving anything.
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Service exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewRegistry(registry)

	sessionRepo := postgres.NewSessionRepositoryPostgres(pool)
	metadataRepo := postgres.NewSessionMetadataRepositoryPostgres(pool)
	revokedRepo := postgres.NewRevokedTokenRepositoryPostgres(pool)
	credRepo := postgres.NewTwoFactorCredentialRepositoryPostgres(pool)
	codeRepo := postgres.NewRecoveryCodeRepositoryPostgres(pool)
	tokenRepo := postgres.NewSingleUseTokenRepositoryPostgres(pool)

	sessionCache := redisrepo.NewSessionCache(redisClient, logger.WithComponent(zapLogger, "session_cache"), cfg.Session.MaxAge)

	encryptor, err := security.NewAESGCMEncryptor(cfg.Security.EncryptionKey, logger.WithComponent(zapLogger, "encryption"))
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	totpService := security.NewTOTPService(cfg.Security.TOTPIssuer)
	hasher, err := security.NewArgon2idHasher(security.DefaultArgon2idParams())
	if err != nil {
		return fmt.Errorf("failed to initialize hasher: %w", err)
	}

	limiter := ratelimit.NewRedisLimiter(
		redisClient, cfg.RateLimit,
		cfg.RateLimit.TwoFactorLimit, cfg.RateLimit.TwoFactorWindow,
		logger.WithComponent(zapLogger, "ratelimit"),
	)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.WithComponent(zapLogger, "events"))
		defer kafkaPublisher.Close() //nolint:errcheck
		publisher = kafkaPublisher
	}

	twoFactorService := service.NewTwoFactorService(
		credRepo, codeRepo, totpService, hasher, encryptor, limiter, publisher, m,
		logger.WithComponent(zapLogger, "two_factor"),
	)
	sessionService := service.NewSessionService(
		sessionRepo, metadataRepo, revokedRepo, sessionCache, publisher, m,
		logger.WithComponent(zapLogger, "sessions"),
	)
	tokenService := service.NewTokenService(tokenRepo, m, logger.WithComponent(zapLogger, "tokens"))

	decoder, err := edge.NewDecoder(cfg.Session.CookieSecret, cfg.Session.CookieName)
	if err != nil {
		return fmt.Errorf("failed to initialize session decoder: %w", err)
	}

	handler := httphandler.NewAuthHandler(twoFactorService, sessionService, tokenService, zapLogger)
	router := httphandler.NewRouter(handler, decoder, sessionCache, registry, zapLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
