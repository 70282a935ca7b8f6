package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/covu-marketplace-ledger/internal/config"
	"github.com/covu-marketplace-ledger/internal/data/mongo"
	"github.com/covu-marketplace-ledger/internal/logger"
	"github.com/covu-marketplace-ledger/internal/platform/messaging/consumers"
	"github.com/covu-marketplace-ledger/internal/platform/messaging/producers"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/covu-marketplace-ledger/internal/projector"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("history_projector")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize MongoDB with app context
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Initialize DLQ producer; nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	// Initialize the archiver with its worker pool
	archiver, err := projector.NewArchiver(log, historyRepo, dlq, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize archiver", "error", err)
		os.Exit(1)
	}

	// Start consuming the ledger event stream
	consumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	if err := consumer.Subscribe(appCtx, cfg.Kafka.LedgerTopic, cfg.Kafka.ConsumerGroup, archiver.HandleMessage); err != nil {
		log.Error("Failed to subscribe to ledger topic", "error", err)
		os.Exit(1)
	}

	log.Info("History projector started",
		"topic", cfg.Kafka.LedgerTopic,
		"group_id", cfg.Kafka.ConsumerGroup,
		"worker_pool_size", cfg.WorkerPool.Size,
	)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context; this stops the consumer loop
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = consumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	archiver.Shutdown()

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ producer", "error", err)
		}
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("History projector shutdown completed")
}
