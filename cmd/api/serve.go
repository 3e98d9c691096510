package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/natours/natours-auth/internal/api/http"
	"github.com/natours/natours-auth/internal/api/http/handlers"
	"github.com/natours/natours-auth/internal/auth"
	"github.com/natours/natours-auth/internal/config"
	"github.com/natours/natours-auth/internal/events"
	"github.com/natours/natours-auth/internal/mailer"
	"github.com/natours/natours-auth/internal/observability"
	"github.com/natours/natours-auth/internal/persistence"
	"github.com/natours/natours-auth/internal/repository"
	"github.com/natours/natours-auth/internal/service"
	"github.com/natours/natours-auth/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var principals repository.PrincipalRepository
	if pg.Enabled() {
		principals = repository.NewPrincipalRepository(pg.PoolHandle())
	} else {
		principals = repository.NewMemoryPrincipalRepository()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	sender, err := newEmailSender(cfg.Notification, logger)
	if err != nil {
		return fmt.Errorf("init email sender: %w", err)
	}

	queue := events.NewQueuedDispatcher(cfg.Notification.QueueSize, logger)
	notificationService := service.NewNotificationService(sender, queue, logger, cfg.Auth.ResetTTL)
	workerDone := worker.StartNotificationWorker(ctx, notificationService, queue)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Principals: principals,
		Notifier:   notificationService,
		Dispatcher: queue,
		Logger:     logger,
		Metrics:    metrics,
	})
	transport := auth.NewSessionTransport(cfg.Auth.SessionCookie)
	gate := auth.NewAccessGate(authService, transport)

	var limiterStorage fiber.Storage
	if redis.Available() {
		limiterStorage = persistence.NewRedisStorage(redis.Client, "natours:ratelimit:")
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.PostgresDependency(pg), handlers.RedisDependency(redis)),
		Auth:        handlers.NewAuthHandler(authService, transport, cfg.App.PublicURL),
		Gate:        gate,
		RateLimiter: httptransport.RateLimiter(cfg.RateLimit, limiterStorage),
		Gatherer:    registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(ctx, logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
	return nil
}

func newEmailSender(cfg config.NotificationConfig, logger *zap.Logger) (mailer.EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		logger.Warn("POSTMARK_SERVER_TOKEN not provided; emails are only logged")
		return mailer.NewLogSender(logger), nil
	}
	return mailer.NewPostmarkSender(mailer.PostmarkConfig{
		ServerToken:  cfg.PostmarkServerToken,
		AccountToken: cfg.PostmarkAccountToken,
		From:         cfg.EmailFrom,
		ReplyTo:      cfg.SupportEmail,
	})
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
