package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/portfolio-delivery/adapters/event"
	"github.com/khoahotran/portfolio-delivery/adapters/media_storage"
	"github.com/khoahotran/portfolio-delivery/adapters/persistence"
	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	profileUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/profile"
	resumeUC "github.com/khoahotran/portfolio-delivery/internal/application/usecase/resume"
	"github.com/khoahotran/portfolio-delivery/internal/config"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Portfolio Worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("KAFKA_BROKERS is required for the worker", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	storage := persistence.NewStorage(cfg, appLogger)
	defer storage.Close()

	g, gctx := errgroup.WithContext(ctx)

	// Cloudinary Uploader
	uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Cloudinary not configured, resume mirroring disabled", zap.Error(err))
	} else {
		mirrorUC := resumeUC.NewMirrorResumeUseCase(storage.ResumeStore, uploader, cfg.Cloudinary.Folder, appLogger)
		g.Go(func() error {
			return consume(gctx, cfg, event.TopicResumeEvents, "resume-mirror-group", appLogger, func(ctx context.Context, payload service.ResumeEvent) error {
				return mirrorUC.Execute(ctx, payload)
			})
		})
	}

	// Redis
	if cfg.Redis.Addr == "" {
		appLogger.Warn("REDIS_ADDR not set, profile cache refresh disabled")
	} else {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("cannot connect Redis", err)
		}
		defer redisClient.Close()

		cache := persistence.NewRedisProfileCache(redisClient, cfg.Redis.CacheTTL, appLogger)
		refreshUC := profileUC.NewRefreshProfileCacheUseCase(storage.ProfileRepo, cache, appLogger)
		g.Go(func() error {
			return consume(gctx, cfg, event.TopicProfileEvents, "profile-cache-group", appLogger, func(ctx context.Context, payload service.ProfileEvent) error {
				return refreshUC.Execute(ctx, payload)
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal("Worker stopped with error", err)
	}
	appLogger.Info("Worker exited")
}

// handlerRetryDelays is the backoff between attempts at one event.
var handlerRetryDelays = []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}

// consume reads topic until ctx ends. Malformed messages are committed and
// skipped. A failing handler is retried with handlerRetryDelays before the
// message is committed and dropped, since a later commit on the partition
// would move past it anyway.
func consume[T any](ctx context.Context, cfg config.Config, topic, groupID string, log logger.Logger, handle func(context.Context, T) error) error {
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	l := log.With(zap.String("topic", topic), zap.String("group_id", groupID))
	l.Info("Worker listening on topic")

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.Error("Failed to read message from Kafka", err)
			continue
		}

		l.Debug("Received message", zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		var payload T
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			l.Error("Failed to unmarshal event, skipping", err)
			commitMessage(ctx, consumer, msg, l)
			continue
		}

		if err := handleWithRetry(ctx, handlerRetryDelays, payload, handle, l); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.Error("Failed to process event, dropping it", err, zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))
		}

		commitMessage(ctx, consumer, msg, l)
	}
}

// handleWithRetry calls handle until it succeeds, the delays run out or ctx
// ends, and returns the last error.
func handleWithRetry[T any](ctx context.Context, delays []time.Duration, payload T, handle func(context.Context, T) error, log logger.Logger) error {
	err := handle(ctx, payload)
	for _, delay := range delays {
		if err == nil {
			return nil
		}
		log.Warn("Event handler failed, retrying", zap.Error(err), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = handle(ctx, payload)
	}
	return err
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
