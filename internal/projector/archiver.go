package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/covu-marketplace-ledger/internal/platform/messaging/producers"
	"github.com/panjf2000/ants/v2"
)

// ArchiveStore persists entries into the history archive
type ArchiveStore interface {
	Archive(ctx context.Context, entry *ledger.Entry) error
}

// Archiver consumes ledger events and writes them to the history
// archive through a bounded worker pool
type Archiver struct {
	store  ArchiveStore
	dlq    producers.DeadLetterPublisher
	pool   *ants.Pool
	logger *slog.Logger
}

// NewArchiver creates an archiver with a worker pool of the given size
func NewArchiver(logger *slog.Logger, store ArchiveStore, dlq producers.DeadLetterPublisher, poolSize int) (*Archiver, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create archiver worker pool: %w", err)
	}

	return &Archiver{
		store:  store,
		dlq:    dlq,
		pool:   pool,
		logger: logger,
	}, nil
}

// HandleMessage archives one ledger event. A nil return commits the
// offset, so the write must have succeeded or the message must have
// been parked in the DLQ before this returns.
func (a *Archiver) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var entry ledger.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal ledger entry from event stream"
		a.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// A malformed payload never becomes parseable on redelivery;
		// park it instead of blocking the partition.
		if a.dlq != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := a.dlq.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				a.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				return fmt.Errorf("failed to unmarshal message value: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := a.logger
	if entry.CorrelationID != "" {
		logger = a.logger.With("correlation_id", entry.CorrelationID)
	}

	resultChan := make(chan error, 1)
	if err := a.pool.Submit(func() {
		resultChan <- a.store.Archive(ctx, &entry)
	}); err != nil {
		logger.Error("Failed to submit archive job to worker pool", "entry_id", entry.ID, "error", err)
		return err
	}

	if err := <-resultChan; err != nil {
		logger.Error("Failed to archive ledger entry", "entry_id", entry.ID, "error", err)
		return err
	}

	metrics.EntriesArchivedTotal.Inc()
	logger.Debug("Archived ledger entry", "entry_id", entry.ID, "account_id", entry.AccountID)
	return nil
}

// Shutdown releases the worker pool
func (a *Archiver) Shutdown() {
	a.logger.Info("Shutting down archiver worker pool", "running_workers", a.pool.Running())
	a.pool.Release()
}
