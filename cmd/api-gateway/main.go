package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shelter-adoption-api/api/swagger"
	"github.com/noah-isme/shelter-adoption-api/db/migrations"
	"github.com/noah-isme/shelter-adoption-api/internal/handler"
	"github.com/noah-isme/shelter-adoption-api/internal/middleware"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	"github.com/noah-isme/shelter-adoption-api/internal/service"
	"github.com/noah-isme/shelter-adoption-api/pkg/cache"
	"github.com/noah-isme/shelter-adoption-api/pkg/config"
	"github.com/noah-isme/shelter-adoption-api/pkg/database"
	"github.com/noah-isme/shelter-adoption-api/pkg/jobs"
	"github.com/noah-isme/shelter-adoption-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shelter-adoption-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shelter-adoption-api/pkg/middleware/requestid"
)

// @title Shelter Adoption API
// @version 1.0.0
// @description Adoption applications, interview scheduling, agreements and post-adoption follow-up
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS); err != nil {
			logr.Sugar().Fatalw("failed to apply migrations", "error", err)
		}
	}

	var cacheRepo *repository.CacheRepository
	client, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
	case client != nil:
		cacheRepo = repository.NewCacheRepository(client, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	app := buildApp(cfg, db, cacheRepo, metricsSvc, logr)
	app.notificationQueue.Start(ctx)
	defer app.notificationQueue.Stop()

	if cfg.Reports.RemindersEnabled {
		hour, minute, err := config.ParseClock(cfg.Reports.ReminderTime)
		if err != nil {
			logr.Sugar().Fatalw("invalid REPORT_REMINDER_TIME", "value", cfg.Reports.ReminderTime, "error", err)
		}
		reminders := jobs.NewDaily("report-reminders", hour, minute, time.UTC, func(ctx context.Context, now time.Time) error {
			result, err := app.reports.ProcessPendingReports(ctx, now)
			if err != nil {
				return err
			}
			logr.Info("report reminder sweep finished",
				zap.Int("scanned", result.Scanned),
				zap.Int("reminded", result.Reminded))
			return nil
		}, logr)
		reminders.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	dependencies := map[string]handler.Pinger{"postgres": db}
	if cacheRepo != nil {
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, dependencies)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), app, service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type application struct {
	applications      *handler.ApplicationHandler
	slots             *handler.SlotHandler
	interviews        *handler.InterviewHandler
	agreements        *handler.AgreementHandler
	reportHandler     *handler.ReportHandler
	notifications     *handler.NotificationHandler
	settings          *handler.SettingsHandler
	reports           *service.PostAdoptionReportService
	notificationQueue *jobs.Queue
	audit             middleware.AuditRecorder
	logger            *zap.Logger
}

func buildApp(cfg *config.Config, db *sqlx.DB, cacheRepo *repository.CacheRepository, metricsSvc *service.MetricsService, logr *zap.Logger) *application {
	applicationRepo := repository.NewApplicationRepository(db)
	animalRepo := repository.NewAnimalRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	reportRepo := repository.NewPostAdoptionReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	var (
		cacheStore service.CacheRepository
		publisher  interface {
			Publish(ctx context.Context, channel string, payload interface{}) error
		}
	)
	if cacheRepo != nil {
		cacheStore = cacheRepo
		publisher = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metricsSvc, cfg.Coordinators.CacheTTL, logr, cacheRepo != nil)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, cacheSvc, publisher, metricsSvc, logr, service.NotificationConfig{
		ChannelPrefix:  cfg.Notifications.ChannelPrefix,
		Publish:        cfg.Notifications.Publish,
		CoordinatorTTL: cfg.Coordinators.CacheTTL,
	})
	queue := jobs.NewQueue("notifications", notificationSvc.Deliver, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnGiveUp:   notificationSvc.GiveUp,
	})
	notificationSvc.Bind(queue)
	if err := metricsSvc.RegisterGauge("notification_queue_depth", "Notifications waiting for delivery", func() float64 {
		return float64(queue.Depth())
	}); err != nil {
		logr.Warn("register queue depth gauge", zap.Error(err))
	}

	opts := []service.Option{
		service.WithLogger(logr),
		service.WithValidator(validator.New()),
		service.WithMetrics(metricsSvc),
		service.WithNotifier(notificationSvc),
	}

	settingsSvc := service.NewSettingsService(settingsRepo, models.ReportCadence{
		OffsetDays: cfg.Reports.OffsetDays,
		FillDays:   cfg.Reports.FillDays,
	}, opts...)
	applicationSvc := service.NewApplicationService(applicationRepo, animalRepo, interviewRepo, opts...)
	slotSvc := service.NewSlotService(slotRepo, applicationRepo, opts...)
	interviewSvc := service.NewInterviewService(interviewRepo, applicationRepo, opts...)
	agreementSvc := service.NewAgreementService(agreementRepo, applicationRepo, animalRepo, reportRepo, settingsSvc, opts...)
	reportSvc := service.NewPostAdoptionReportService(reportRepo, agreementRepo, settingsSvc, service.ReminderConfig{
		Interval: cfg.Reports.ReminderInterval,
		Batch:    cfg.Reports.ReminderBatch,
	}, opts...)

	return &application{
		applications:      handler.NewApplicationHandler(applicationSvc),
		slots:             handler.NewSlotHandler(slotSvc),
		interviews:        handler.NewInterviewHandler(interviewSvc),
		agreements:        handler.NewAgreementHandler(agreementSvc),
		reportHandler:     handler.NewReportHandler(reportSvc),
		notifications:     handler.NewNotificationHandler(notificationSvc),
		settings:          handler.NewSettingsHandler(settingsSvc),
		reports:           reportSvc,
		notificationQueue: queue,
		audit:             userRepo,
		logger:            logr,
	}
}

func registerRoutes(api *gin.RouterGroup, app *application, tokens middleware.TokenValidator) {
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(app.audit, app.logger, action, resource)
	}
	staff := []models.UserRole{models.RoleAdmin, models.RoleCoordinator, models.RoleVolunteer}
	coordinators := []models.UserRole{models.RoleAdmin, models.RoleCoordinator}

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	applications := secured.Group("/applications")
	applications.POST("", middleware.RequireRoles(models.RoleCandidate), app.applications.Submit)
	applications.GET("/mine", middleware.RequireRoles(models.RoleCandidate), app.applications.ListMine)
	applications.GET("/:id", app.applications.Get)
	applications.POST("/:id/decision", middleware.RequireRoles(coordinators...), audit(models.AuditActionDecide, "adoption_application"), app.applications.Decide)
	applications.GET("/:id/interviews", app.interviews.ListByApplication)
	applications.POST("/:id/interviews", middleware.RequireRoles(coordinators...), audit(models.AuditActionSchedule, "adoption_application"), app.applications.ScheduleInterview)
	applications.POST("/:id/reschedule", app.interviews.Reschedule)
	applications.POST("/:id/agreement", middleware.RequireRoles(coordinators...), audit(models.AuditActionComplete, "adoption_application"), app.agreements.Complete)

	slots := secured.Group("/slots")
	slots.GET("", app.slots.List)
	slots.POST("", middleware.RequireRoles(staff...), app.slots.Create)
	slots.POST("/:id/book", middleware.RequireRoles(models.RoleCandidate, models.RoleAdmin), app.slots.Book)
	slots.POST("/:id/cancel-booking", middleware.RequireRoles(models.RoleCandidate, models.RoleAdmin), app.slots.CancelBooking)
	slots.DELETE("/:id", middleware.RequireRoles(coordinators...), audit(models.AuditActionSlotCancel, "interview_slot"), app.slots.Cancel)

	interviews := secured.Group("/interviews")
	interviews.POST("/:id/confirm", middleware.RequireRoles(models.RoleCandidate), app.interviews.Confirm)
	interviews.PATCH("/:id", middleware.RequireRoles(staff...), audit(models.AuditActionInterviewUpdate, "interview"), app.interviews.Update)

	agreements := secured.Group("/agreements")
	agreements.GET("/:id", app.agreements.Get)
	agreements.GET("/:id/document", app.agreements.Document)
	agreements.GET("/:id/reports.csv", middleware.RequireRoles(coordinators...), app.reportHandler.ExportCSV)

	secured.POST("/reports/:id/submit", middleware.RequireRoles(models.RoleCandidate), app.reportHandler.Submit)

	secured.GET("/notifications", app.notifications.List)
	secured.POST("/notifications/:id/read", app.notifications.MarkRead)

	settings := secured.Group("/settings", middleware.RequireRoles(models.RoleAdmin))
	settings.GET("/report-cadence", app.settings.GetReportCadence)
	settings.PUT("/report-cadence", audit(models.AuditActionCadenceUpdate, "system_setting"), app.settings.UpdateReportCadence)
}
