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

	"github.com/integrateisp/ops-api/docs"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/config"
	"github.com/integrateisp/ops-api/internal/database"
	"github.com/integrateisp/ops-api/internal/http/handler"
	"github.com/integrateisp/ops-api/internal/http/middleware"
	"github.com/integrateisp/ops-api/internal/http/router"
	"github.com/integrateisp/ops-api/internal/jobs"
	"github.com/integrateisp/ops-api/internal/logger"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/storage"
	"go.uber.org/zap"
)

// @title Integrate ISP Operations API
// @version 1.0
// @description Internal operations API for expenses, tasks, clients and quotations

// @contact.name Operations Engineering
// @contact.email ops@integrateisp.net

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer access token from /auth/login-json

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
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

	// In staging/production with USE_AZURE_KEY_VAULT=true secrets come from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate || cfg.Database.Driver == "sqlite" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated")
	}

	archiveStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contactRepo := repository.NewContactRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	historyRepo := repository.NewServiceHistoryRepository(db)
	docRepo := repository.NewTechnicalDocRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())
	notificationService := service.NewNotificationService(notificationRepo, log)
	authService := service.NewAuthService(userRepo, tokens, log)
	userService := service.NewUserService(db, userRepo, taskRepo, log)
	expenseService := service.NewExpenseService(db, expenseRepo, clientRepo, notificationService, log)
	taskService := service.NewTaskService(db, taskRepo, userRepo, clientRepo, notificationService, log)
	clientService := service.NewClientService(db, clientRepo, contactRepo, quotationRepo, historyRepo, docRepo, expenseRepo, taskRepo, log)
	quotationService := service.NewQuotationService(db, quotationRepo, clientRepo, archiveStorage, log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName); err != nil {
		return fmt.Errorf("failed to bootstrap admin user: %w", err)
	}

	// Middleware
	authMiddleware := auth.NewMiddleware(authService, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, auditMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(authService, userService, log),
		User:         handler.NewUserHandler(userService, log),
		Expense:      handler.NewExpenseHandler(expenseService, log),
		Task:         handler.NewTaskHandler(taskService, log),
		Client:       handler.NewClientHandler(clientService, log),
		Quotation:    handler.NewQuotationHandler(quotationService, log),
		Notification: handler.NewNotificationHandler(notificationService, log),
		Audit:        handler.NewAuditHandler(auditLogService, log),
	})

	scheduler, err := startScheduler(cfg, taskService, auditLogService, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), "request timed out"),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// startScheduler registers the background jobs. It returns nil when jobs are disabled.
func startScheduler(
	cfg *config.Config,
	taskService *service.TaskService,
	auditLogService *service.AuditLogService,
	log *zap.Logger,
) (*jobs.Scheduler, error) {
	if !cfg.Jobs.Enabled {
		log.Info("Background jobs disabled")
		return nil, nil
	}

	scheduler := jobs.NewScheduler(log)
	timeout := cfg.Jobs.TaskReminderTimeoutDuration()

	reminders := jobs.NewTaskReminderJob(taskService, log.Named("task_reminders"), timeout)
	if err := scheduler.AddJob(jobs.TaskReminderJobName, cfg.Jobs.TaskReminderCron, reminders.Run); err != nil {
		return nil, fmt.Errorf("failed to register task reminder job: %w", err)
	}

	if cfg.Jobs.AuditRetentionCron != "" {
		retention := jobs.NewAuditRetentionJob(auditLogService, cfg.Jobs.AuditRetentionDays, log.Named("audit_retention"), timeout)
		if err := scheduler.AddJob(jobs.AuditRetentionJobName, cfg.Jobs.AuditRetentionCron, retention.Run); err != nil {
			return nil, fmt.Errorf("failed to register audit retention job: %w", err)
		}
	}

	scheduler.Start()
	log.Info("Scheduler started", zap.Strings("jobs", scheduler.JobNames()))
	return scheduler, nil
}
