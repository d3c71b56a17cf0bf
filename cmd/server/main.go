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

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/internal/app/controller"
	"github.com/ikkim/medilens-admin/internal/app/repository"
	"github.com/ikkim/medilens-admin/internal/app/service"
	"github.com/ikkim/medilens-admin/internal/db"
	"github.com/ikkim/medilens-admin/internal/router"
	"github.com/ikkim/medilens-admin/internal/scheduler"
	"github.com/ikkim/medilens-admin/internal/storage"
	"github.com/ikkim/medilens-admin/internal/websocket"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"github.com/ikkim/medilens-admin/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting MediLens Admin Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed database (optional)
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// ID 시퀀스: Redis 설정 시 INCR (키가 없으면 DB에서 시작값), 아니면 DB 카운터
	dbSequences := repository.NewSequenceRepository(db.GetDB())
	var sequences service.SequenceGenerator = dbSequences
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		sequences = redis.NewSequenceGenerator(redis.GetClient(), dbSequences)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Billing event hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	institutionRepo := repository.NewInstitutionRepository(db.GetDB())
	licenseRepo := repository.NewLicenseRepository(db.GetDB())
	paymentRepo := repository.NewPaymentRepository(db.GetDB())

	// Initialize services
	institutionService := service.NewInstitutionService(institutionRepo)
	licenseService := service.NewLicenseService(licenseRepo, institutionRepo, sequences, db.GetDB(), hub)
	paymentService := service.NewPaymentService(paymentRepo, licenseRepo, institutionRepo, sequences, &cfg.Billing, db.GetDB(), hub)
	exportService := service.NewExportService(licenseRepo, paymentRepo)

	// Report storage (optional)
	var reportSigner controller.ReportSigner
	var reportUploader scheduler.ReportUploader
	if cfg.S3.Enabled() {
		s3Storage := storage.NewS3Storage(&cfg.S3)
		reportSigner = s3Storage
		reportUploader = s3Storage
	} else {
		logger.Warn("AWS_S3_BUCKET not set, payment reports will not be uploaded", nil)
	}

	// Scheduler
	if cfg.Scheduler.Enabled {
		billingScheduler := scheduler.NewBillingScheduler(&cfg.Scheduler, exportService, licenseService, reportUploader)
		if err := billingScheduler.Start(); err != nil {
			logger.Fatal("Failed to start billing scheduler", err)
		}
		defer billingScheduler.Stop()
	}

	// Setup router
	r := router.NewRouter(
		controller.NewInstitutionController(institutionService),
		controller.NewLicenseController(licenseService, exportService),
		controller.NewPaymentController(paymentService, exportService),
		controller.NewReportController(reportSigner),
		controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins),
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	// WebSocket 세션 종료
	cancel()

	logger.Info("Server stopped successfully")
}
