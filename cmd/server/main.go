package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/portfolio-delivery/adapters/event"
	httpAdapter "github.com/khoahotran/portfolio-delivery/adapters/http"
	"github.com/khoahotran/portfolio-delivery/adapters/mail"
	"github.com/khoahotran/portfolio-delivery/adapters/persistence"
	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	contactUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/contact"
	profileUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/profile"
	resumeUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/resume"
	"github.com/khoahotran/portfolio-delivery/internal/config"
	"github.com/khoahotran/portfolio-delivery/internal/domain/profile"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
	"github.com/khoahotran/portfolio-delivery/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Start Portfolio API Server...", zap.String("driver", cfg.Storage.Driver))

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := tracing.NewTracerProvider(cfg, appLogger, "portfolio-api")
	if err != nil {
		appLogger.Warn("Tracing disabled", zap.Error(err))
	}
	defer tracing.Shutdown(context.Background(), tp)

	// Storage
	if cfg.Storage.Driver == config.DriverPostgres && cfg.DB.DSN != "" && cfg.DB.AutoMigrate {
		if err := persistence.RunMigrations(cfg.DB.Migrations, cfg.DB.DSN, appLogger); err != nil {
			appLogger.Error("Migrations failed, continuing with existing schema", err)
		}
	}
	if !cfg.StorageConfigured() {
		appLogger.Warn("No storage connection configured, profile reads return 204 and writes fail", zap.String("driver", cfg.Storage.Driver))
	}
	storage := persistence.NewStorage(cfg, appLogger)
	defer storage.Close()

	// Cache
	var profileCache profile.Cache
	cacheName := ""
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, profile cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			profileCache = persistence.NewRedisProfileCache(redisClient, cfg.Redis.CacheTTL, appLogger)
			cacheName = "redis"
		}
	}

	// Events
	var events service.EventPublisher = event.NewNoopPublisher()
	eventsName := ""
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Kafka unavailable, events disabled", zap.Error(err))
		} else {
			defer kafkaClient.Close()
			events = kafkaClient
			eventsName = "kafka"
		}
	}

	// Mail
	var mailer service.Mailer
	if cfg.Mail.Host != "" {
		mailer, err = mail.NewSMTPMailer(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Mail transport disabled", zap.Error(err))
			mailer = nil
		}
	}

	// Use Cases
	getProfileUseCase := profileUC.NewGetProfileUseCase(storage.ProfileRepo, profileCache, appLogger)
	seedProfileUseCase := profileUC.NewSeedProfileUseCase(storage.ProfileRepo, profileCache, events, appLogger)
	uploadResumeUseCase := resumeUC.NewUploadResumeUseCase(storage.ResumeStore, events, cfg.App.PublicURL, appLogger)
	downloadResumeUseCase := resumeUC.NewDownloadResumeUseCase(storage.ResumeStore)
	sendContactUseCase := contactUC.NewSendContactUseCase(mailer, storage.ProfileRepo, cfg.Mail.To, appLogger)

	// HTTP
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CORSOrigins:    cfg.App.CORSOrigins,
		SeedToken:      cfg.Seed.Token,
		ProfileHandler: httpAdapter.NewProfileHandler(getProfileUseCase, seedProfileUseCase, appLogger),
		ResumeHandler:  httpAdapter.NewResumeHandler(uploadResumeUseCase, downloadResumeUseCase, appLogger),
		ContactHandler: httpAdapter.NewContactHandler(sendContactUseCase, appLogger),
		HealthHandler:  httpAdapter.NewHealthHandler(storage, cacheName, eventsName),
		Logger:         appLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		appLogger.Info("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Fatal("Server stopped with error", err)
	}
	appLogger.Info("Server exited")
}
