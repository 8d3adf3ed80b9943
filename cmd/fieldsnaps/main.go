package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/billing"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/config"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/controller"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/handlers"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/storage"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/bg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := db.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	store, err := storage.NewLocalStore(cfg.StorageDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize blob store", zap.Error(err))
	}

	publisher := initPublisher(cfg, repo, logger)
	defer publisher.Close()

	var gateway controller.BillingGateway
	if cfg.BillingEnabled() {
		gateway = billing.NewClient(cfg.StripeSecretKey, cfg.StripePriceID, cfg.StripeWebhookSecret, logger)
	} else {
		logger.Warn("Stripe is not configured, billing endpoints are disabled")
	}

	users := controller.NewUserService(repo, logger)
	notifications := controller.NewNotificationService(repo, logger)
	activity := controller.NewActivityService(repo, logger)
	api := handlers.NewAPI(handlers.Services{
		Users:         users,
		Companies:     controller.NewCompanyService(repo, cfg.TrialDays, logger),
		Projects:      controller.NewProjectService(repo, publisher, logger),
		Photos:        controller.NewPhotoService(repo, store, publisher, cfg.PhotoTargetBytes, logger),
		Tasks:         controller.NewTaskService(repo, publisher, logger),
		Clock:         controller.NewClockService(repo, publisher, logger),
		Notifications: notifications,
		Activity:      activity,
		Billing:       controller.NewBillingService(repo, gateway, publisher, logger),
	}, repo, logger)

	httpHandler, err := handlers.NewHTTPHandler(api, handlers.HTTPConfig{
		JWTSecret:      cfg.JWTSecret,
		JWTAudience:    cfg.JWTAudience,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	if err != nil {
		logger.Fatal("failed to register HTTP routes", zap.Error(err))
	}

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret, cfg.JWTAudience,
		handlers.MethodListActivity,
		handlers.MethodCountUnreadNotifications,
	)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(handlers.NewActivityHandler(users, activity, notifications, logger))
	server.RegisterHTTPHandler(httpHandler)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger builds a production logger at the configured level.
func initLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger.Named("fieldsnaps")
}

// initPublisher sends events to Kafka when brokers are configured. Without
// brokers the projector runs in process.
func initPublisher(cfg *config.Config, repo *db.Repository, logger *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, projecting events in process")
		return events.NewLocalDispatcher(events.NewProjector(repo, logger).Handle, bg.Async{}, logger)
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.Topic, logger)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	return producer
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
