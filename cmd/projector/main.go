// The projector consumes domain events from Kafka and writes the activity
// feed and notifications.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/config"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	logger = logger.Named("projector")
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	repo, err := db.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.Topic, cfg.ConsumerGroup, logger)
	defer consumer.Close()
	consumer.RegisterHandler(events.NewProjector(repo, logger).Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Projector started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.ConsumerGroup),
	)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Consumer stopped", zap.Error(err))
	}
	logger.Info("Projector stopped")
}
