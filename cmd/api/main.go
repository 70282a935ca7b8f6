package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/covu-marketplace-ledger/internal/api"
	"github.com/covu-marketplace-ledger/internal/catalog"
	"github.com/covu-marketplace-ledger/internal/config"
	"github.com/covu-marketplace-ledger/internal/data/mongo"
	"github.com/covu-marketplace-ledger/internal/data/postgres"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/logger"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/covu-marketplace-ledger/internal/platform/messaging/producers"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/covu-marketplace-ledger/internal/projector"
	"github.com/covu-marketplace-ledger/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the outbox poller
	ledgerProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	escrowRepo := postgres.NewEscrowRepository(log, postgresDB)
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	withdrawalRepo := postgres.NewWithdrawalRepository(log, postgresDB)
	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Initialize external clients
	paystackClient := paystack.NewClient(log, &cfg.Paystack)
	catalogClient := catalog.NewClient(log, &cfg.Catalog)

	// Initialize services
	poster := service.NewLedgerPoster(log, accountRepo, ledgerRepo, outboxRepo)
	escrowManager := service.NewEscrowManager(log, escrowRepo, poster)

	fees := withdrawal.FeeSchedule{
		MinAmount: cfg.Withdrawal.MinAmount,
		FeeAbove:  cfg.Withdrawal.FeeAbove,
	}
	for _, tier := range cfg.Withdrawal.Tiers {
		fees.Tiers = append(fees.Tiers, withdrawal.Tier{UpperBound: tier.UpperBound, Fee: tier.Fee})
	}

	walletService := service.NewWalletService(log, accountRepo, ledgerRepo, withdrawalRepo, historyRepo, paystackClient)
	withdrawalService := service.NewWithdrawalService(log, postgresDB, accountRepo, withdrawalRepo, poster, paystackClient, fees)
	orderService := service.NewOrderService(log, postgresDB, orderRepo, escrowRepo, escrowManager, catalogClient)
	settlementService := service.NewSettlementService(log, postgresDB, settlementRepo, poster, withdrawalService, cfg.Paystack.SecretKey)

	// Start the outbox poller; it drains committed entries to Kafka
	poller := projector.NewPoller(&cfg.Outbox, outboxRepo, ledgerProducer, log)
	go poller.Start(appCtx)

	// Initialize REST server
	server := api.NewServer(log, cfg, walletService, orderService, withdrawalService, settlementService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context; this also stops the poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = ledgerProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
