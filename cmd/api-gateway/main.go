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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-panel/api/swagger"
	"github.com/noah-isme/academic-panel/internal/handler"
	"github.com/noah-isme/academic-panel/internal/repository"
	"github.com/noah-isme/academic-panel/internal/router"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/service"
	"github.com/noah-isme/academic-panel/internal/view"
	"github.com/noah-isme/academic-panel/migrations"
	"github.com/noah-isme/academic-panel/pkg/cache"
	"github.com/noah-isme/academic-panel/pkg/config"
	"github.com/noah-isme/academic-panel/pkg/database"
	"github.com/noah-isme/academic-panel/pkg/events"
	"github.com/noah-isme/academic-panel/pkg/export"
	"github.com/noah-isme/academic-panel/pkg/jobs"
	"github.com/noah-isme/academic-panel/pkg/logger"
	"github.com/noah-isme/academic-panel/pkg/mailer"
	"github.com/noah-isme/academic-panel/pkg/nonce"
	"github.com/noah-isme/academic-panel/pkg/storage"
)

// @title Academic Panel API
// @version 1.0.0
// @description Enrollment approval, call tracking, payments, exports and bulk email for the academic admin panel
// @BasePath /
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewReportCacheRepository(redisClient, logr)
		}
	}

	transport, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		logr.Fatal("failed to init mail transport", zap.Error(err))
	}

	publisher := events.Publisher(events.NopPublisher{})
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logr)
		if err != nil {
			logr.Warn("event broker unavailable, events disabled", zap.Error(err))
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}

	renderer, err := view.New(cfg.Institution.Name)
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	validate := validator.New()
	registry := schema.Default()
	nonces := nonce.NewManager(cfg.Nonce.Secret, cfg.Nonce.TTL)
	signer := storage.NewSignedURLSigner(cfg.Invoices.LinkSecret, cfg.Invoices.LinkTTL)
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	conceptRepo := repository.NewPaymentConceptRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	reportRepo := repository.NewReportRepository(db)

	notifications := service.NewNotificationService(transport, renderer, metrics, logr)
	if cfg.Notify.QueueEnabled {
		queue := notifications.EnableQueue(jobs.QueueConfig{
			Workers:    cfg.Notify.Workers,
			MaxRetries: cfg.Notify.Retries,
			RetryDelay: cfg.Notify.RetryDelay,
		})
		queue.Start(ctx)
		defer queue.Stop()
	}

	activitySvc := service.NewActivityService(activityRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "academic-panel",
	})
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceDeps{
		Repo:      enrollmentRepo,
		Students:  studentRepo,
		Notifier:  notifications,
		Activity:  activitySvc,
		Publisher: publisher,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, courseRepo, activitySvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, activitySvc, validate, logr)
	paymentSvc := service.NewPaymentService(service.PaymentServiceDeps{
		Payments: paymentRepo,
		Concepts: conceptRepo,
		Students: studentRepo,
		Invoices: export.NewInvoiceRenderer(export.Issuer{
			Name:    cfg.Institution.Name,
			TaxID:   cfg.Institution.TaxID,
			Address: cfg.Institution.Address,
			Phone:   cfg.Institution.Phone,
			Email:   cfg.Institution.Email,
		}),
		Signer:    signer,
		Notifier:  notifications,
		Activity:  activitySvc,
		Publisher: publisher,
		Cache:     cacheSvc,
		Validator: validate,
		Logger:    logr,
		BaseURL:   cfg.BaseURL,
	})
	exportSvc := service.NewExportService(enrollmentRepo, files, activitySvc, metrics, service.ExportConfig{
		Institution: cfg.Institution.Name,
		Archive:     cfg.Exports.KeepFiles,
		ResultTTL:   cfg.Exports.RetainFor,
	}, logr)
	bulkSvc := service.NewBulkEmailService(enrollmentRepo, renderer, notifications, activitySvc, service.BulkEmailConfig{
		Timeout:       cfg.BulkEmail.Timeout,
		MaxRecipients: cfg.BulkEmail.MaxRecipients,
	}, validate, logr)
	reportSvc := service.NewReportService(reportRepo, cacheSvc, cfg.Reports.CacheTTL, logr)

	if cfg.Exports.KeepFiles {
		go sweepExports(ctx, exportSvc, cfg.Exports.RetainFor, logr)
	}

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	authHandler := handler.NewAuthHandler(authSvc, nonces, handler.SessionConfig{Secure: cfg.Env == config.EnvProduction})
	engine := router.New(router.Deps{
		Logger:         logr,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		APIPrefix:      cfg.APIPrefix,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authSvc,
		Nonces:         nonces,
		Capabilities:   registry,
		Auth:           authHandler,
		Panel: handler.NewPanelHandler(handler.PanelDeps{
			Renderer:     renderer,
			Auth:         authHandler,
			Nonces:       nonces,
			Capabilities: registry,
			Enrollments:  enrollmentSvc,
			Courses:      courseSvc,
			Payments:     paymentSvc,
			Activity:     activitySvc,
			APIPrefix:    cfg.APIPrefix,
			Logger:       logr,
		}),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, renderer, registry, logr),
		Students:    handler.NewStudentHandler(studentSvc, renderer),
		Courses:     handler.NewCourseHandler(courseSvc),
		Payments:    handler.NewPaymentHandler(paymentSvc),
		Exports:     handler.NewExportHandler(exportSvc),
		Emails:      handler.NewEmailHandler(bulkSvc),
		Activity:    handler.NewActivityHandler(activitySvc),
		Reports:     handler.NewReportHandler(reportSvc),
		Schema:      handler.NewSchemaHandler(registry),
		Observe:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown", zap.Error(err))
	}
}

func migrate(ctx context.Context, db *sqlx.DB, logr *zap.Logger) error {
	migrator, err := database.NewMigrator(db.DB, migrations.FS, ".", logr)
	if err != nil {
		return err
	}
	return migrator.Up(ctx)
}

// sweepExports removes archived exports older than ttl once an hour.
func sweepExports(ctx context.Context, exports *service.ExportService, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("export cleanup", zap.Int("removed", len(removed)))
			}
		}
	}
}
