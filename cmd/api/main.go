package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/crm-api/docs"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/config"
	"github.com/straye-as/crm-api/internal/database"
	"github.com/straye-as/crm-api/internal/http/handler"
	"github.com/straye-as/crm-api/internal/http/middleware"
	"github.com/straye-as/crm-api/internal/http/router"
	"github.com/straye-as/crm-api/internal/jobs"
	"github.com/straye-as/crm-api/internal/logger"
	"github.com/straye-as/crm-api/internal/notify"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/straye-as/crm-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye CRM API
// @version 1.0
// @description Client, contract and event management with role based access for sales, support and management staff

// @contact.name API Support
// @contact.email support@straye.io

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

const (
	auditRetentionTimeout = 5 * time.Minute
	shutdownTimeout       = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// In staging/production secrets come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	publisher, err := notify.NewPublisher(&cfg.NATS, log)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contractRepo := repository.NewContractRepository(db)
	eventRepo := repository.NewEventRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Services
	userService := service.NewUserService(userRepo, log)
	clientService := service.NewClientService(clientRepo, contractRepo, userRepo, documentRepo, txManager, fileStorage, publisher, log)
	contractService := service.NewContractService(clientRepo, contractRepo, eventRepo, userRepo, documentRepo, txManager, fileStorage, publisher, log)
	eventService := service.NewEventService(clientRepo, contractRepo, eventRepo, userRepo, txManager, publisher, log)
	documentService := service.NewDocumentService(clientRepo, contractRepo, documentRepo, fileStorage, cfg.Storage.MaxUploadBytes(), log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, userRepo, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, auditMiddleware, router.Handlers{
		Health:   handler.NewHealthHandler(db, log),
		User:     handler.NewUserHandler(userService, log),
		Client:   handler.NewClientHandler(clientService, log),
		Contract: handler.NewContractHandler(contractService, log),
		Event:    handler.NewEventHandler(eventService, log),
		Document: handler.NewDocumentHandler(documentService, cfg.Storage.MaxUploadBytes(), log),
		Audit:    handler.NewAuditHandler(auditLogService, log),
	})

	scheduler := startScheduler(cfg, auditLogRepo, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}
	return serve(srv, scheduler, log)
}

// startScheduler registers the audit retention purge. It returns nil when
// jobs are switched off or the cron expression is rejected.
func startScheduler(cfg *config.Config, auditLogRepo *repository.AuditLogRepository, log *zap.Logger) *jobs.Scheduler {
	if !cfg.Jobs.Enabled || cfg.Jobs.AuditRetentionDays == 0 {
		log.Info("background jobs disabled", zap.Bool("enabled", cfg.Jobs.Enabled))
		return nil
	}

	scheduler := jobs.NewScheduler(log)
	job := jobs.NewAuditRetentionJob(auditLogRepo, cfg.Jobs.AuditRetention(), auditRetentionTimeout, log)
	if err := scheduler.AddJob(jobs.AuditRetentionJobName, cfg.Jobs.AuditRetentionCron, job.Run); err != nil {
		log.Error("audit retention job not registered", zap.Error(err))
		return nil
	}
	scheduler.Start()
	log.Info("audit retention scheduled",
		zap.String("cron_expr", cfg.Jobs.AuditRetentionCron),
		zap.Int("retention_days", cfg.Jobs.AuditRetentionDays),
	)
	return scheduler
}

// serve runs srv until it fails or SIGINT/SIGTERM arrives, then drains
// running jobs and in-flight requests.
func serve(srv *http.Server, scheduler *jobs.Scheduler, log *zap.Logger) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-sigCtx.Done():
	}

	log.Info("shutting down")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
