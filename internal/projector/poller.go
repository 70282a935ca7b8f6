// Package projector moves committed ledger entries from the outbox to
// the Kafka event stream and from the stream into the MongoDB history
// archive. It is the asynchronous half of the ledger: the write path
// only appends outbox rows, everything here happens after commit.
package projector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/config"
	"github.com/covu-marketplace-ledger/internal/domain/outbox"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/covu-marketplace-ledger/internal/platform/messaging/producers"
)

// Poller drains pending outbox messages into the event stream
type Poller struct {
	outboxRepo       outbox.Repository
	producer         producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// NewPoller creates an outbox poller from configuration
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		producer:         producer,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		p.publishOne(ctx, msg)
	}
	return nil
}

// publishOne publishes a single message, keyed by account id so a
// consumer sees one account's entries in order. A published row is
// deleted; a row that keeps failing past the retry budget is parked as
// FAILED_TO_PUBLISH for manual inspection.
func (p *Poller) publishOne(ctx context.Context, msg *outbox.Message) {
	logger := p.logger
	if entry, err := msg.GetLedgerEntry(); err == nil && entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.producer.Publish(ctx, msg.AccountID.String(), msg.Payload); err != nil {
		logger.Error("Failed to publish outbox message",
			"outbox_id", msg.ID, "entry_id", msg.EntryID, "current_attempts", msg.Attempts, "error", err,
		)
		metrics.OutboxPublishedTotal.WithLabelValues("failed").Inc()

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
			return
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID, "entry_id", msg.EntryID, "attempts_made", msg.Attempts+1,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
				logger.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", errUpdate)
			}
			metrics.OutboxPublishedTotal.WithLabelValues("dead_lettered").Inc()
		}
		return
	}

	if err := p.outboxRepo.Delete(ctx, msg.ID); err != nil {
		// The entry will be republished next tick; the archive upsert
		// absorbs the duplicate.
		logger.Error("Published outbox message but failed to delete it", "outbox_id", msg.ID, "error", err)
	}

	metrics.OutboxPublishedTotal.WithLabelValues("published").Inc()
	logger.Debug("Published outbox message", "outbox_id", msg.ID, "entry_id", msg.EntryID)
}
