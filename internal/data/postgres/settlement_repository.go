package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/covu-marketplace-ledger/internal/domain/settlement"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SettlementRepository implements the settlement.Repository interface for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement repository
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.Repository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *SettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Record inserts the processed-event row. The primary key on event_id is
// the idempotency barrier: concurrent replays of the same event conflict
// here and exactly one transaction commits.
func (r *SettlementRepository) Record(ctx context.Context, event *settlement.ProcessedEvent) error {
	query := `
		INSERT INTO settlement_events (event_id, type, reference, outcome, processed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		event.EventID,
		event.Type,
		event.Reference,
		event.Outcome,
		event.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return settlement.ErrAlreadyProcessed{EventID: event.EventID}
		}
		r.logger.Error("Failed to record settlement event", "eventID", event.EventID, "error", err)
		return fmt.Errorf("failed to record settlement event: %w", err)
	}

	return nil
}

// GetByEventID retrieves the processed record for an event id
func (r *SettlementRepository) GetByEventID(ctx context.Context, eventID string) (*settlement.ProcessedEvent, error) {
	query := `
		SELECT event_id, type, reference, outcome, processed_at
		FROM settlement_events
		WHERE event_id = $1
	`

	var event settlement.ProcessedEvent
	err := r.querier.QueryRow(ctx, query, eventID).Scan(
		&event.EventID,
		&event.Type,
		&event.Reference,
		&event.Outcome,
		&event.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrEventNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get settlement event", "eventID", eventID, "error", err)
		return nil, fmt.Errorf("failed to get settlement event: %w", err)
	}

	return &event, nil
}
