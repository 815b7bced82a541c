package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/AVGC-lgtm/SmartPatrol/internal/media"
	mediaconsumer "github.com/AVGC-lgtm/SmartPatrol/internal/media/consumer"
	"github.com/AVGC-lgtm/SmartPatrol/internal/notifications"
	"github.com/AVGC-lgtm/SmartPatrol/internal/scans"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/config"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/db"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/logger"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/outbox/idempotency"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/pubsub"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/redis"
)

// runner is one long-lived Pub/Sub consumer loop.
type runner interface {
	Run(ctx context.Context) error
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	mediaRepo := media.NewRepository(dbClient.DB())
	scansRepo := scans.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	notificationConsumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		manager,
		logg,
	)
	requireResource(ctx, logg, "notification consumer", err)

	finalizeConsumer, err := mediaconsumer.NewConsumer(
		mediaRepo,
		dbClient,
		outboxSvc,
		pubsubClient.MediaFinalizeSubscription(),
		logg,
	)
	requireResource(ctx, logg, "media finalize consumer", err)

	deletionConsumer, err := mediaconsumer.NewDeletionConsumer(
		mediaRepo,
		scansRepo,
		pubsubClient.MediaDeletionSubscription(),
		logg,
	)
	requireResource(ctx, logg, "media deletion consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "worker ready")

	consumers := map[string]runner{
		"notifications":  notificationConsumer,
		"media-finalize": finalizeConsumer,
		"media-deletion": deletionConsumer,
	}

	errCh := make(chan error, len(consumers))
	for name, consumer := range consumers {
		go func(name string, consumer runner) {
			if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s consumer: %w", name, err)
				return
			}
			errCh <- nil
		}(name, consumer)
	}

	// One failed consumer brings the whole process down so the platform
	// restarts it with all loops intact.
	for range consumers {
		if err := <-errCh; err != nil {
			logg.Error(runCtx, "worker stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
