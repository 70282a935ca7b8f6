package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// EscrowRepository implements the escrow.Repository interface for PostgreSQL
type EscrowRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewEscrowRepository creates a new PostgreSQL escrow repository
func NewEscrowRepository(logger *slog.Logger, db *persistence.PostgresDB) escrow.Repository {
	return &EscrowRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *EscrowRepository) WithTx(tx pgx.Tx) escrow.Repository {
	return &EscrowRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new HELD escrow. One escrow per order; the unique
// index on order_id enforces it.
func (r *EscrowRepository) Create(ctx context.Context, rec *escrow.Record) error {
	query := `
		INSERT INTO escrows (id, order_id, buyer_account_id, seller_account_id, amount, currency, status, held_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.OrderID,
		rec.BuyerAccountID,
		rec.SellerAccountID,
		rec.Amount,
		rec.Currency,
		rec.Status,
		rec.HeldAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return escrow.ErrDuplicateEscrow{OrderID: rec.OrderID}
		}
		r.logger.Error("Failed to create escrow", "error", err)
		return fmt.Errorf("failed to create escrow: %w", err)
	}

	return nil
}

// GetByID retrieves an escrow by its ID
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Record, error) {
	query := `
		SELECT id, order_id, buyer_account_id, seller_account_id, amount, currency, status, held_at, resolved_at
		FROM escrows
		WHERE id = $1
	`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrEscrowNotFound{}
		}
		r.logger.Error("Failed to get escrow", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}

	return rec, nil
}

// GetByOrderID retrieves the escrow held against an order
func (r *EscrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*escrow.Record, error) {
	query := `
		SELECT id, order_id, buyer_account_id, seller_account_id, amount, currency, status, held_at, resolved_at
		FROM escrows
		WHERE order_id = $1
	`

	rec, err := r.scanRecord(r.querier.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, escrow.ErrEscrowNotFound{OrderID: orderID}
		}
		r.logger.Error("Failed to get escrow by order", "orderID", orderID.String(), "error", err)
		return nil, fmt.Errorf("failed to get escrow by order: %w", err)
	}

	return rec, nil
}

// Resolve moves a HELD escrow to RELEASED or REFUNDED. The WHERE clause
// is the compare-and-set that makes release and refund mutually
// exclusive under concurrent calls.
func (r *EscrowRepository) Resolve(ctx context.Context, id uuid.UUID, to escrow.Status, resolvedAt time.Time) error {
	query := `
		UPDATE escrows
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, resolvedAt, id, escrow.StatusHeld)
	if err != nil {
		r.logger.Error("Failed to resolve escrow", "id", id.String(), "error", err)
		return fmt.Errorf("failed to resolve escrow: %w", err)
	}

	if result.RowsAffected() == 0 {
		return escrow.ErrStateConflict{EscrowID: id, To: to}
	}

	return nil
}

func (r *EscrowRepository) scanRecord(row pgx.Row) (*escrow.Record, error) {
	var rec escrow.Record
	err := row.Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.BuyerAccountID,
		&rec.SellerAccountID,
		&rec.Amount,
		&rec.Currency,
		&rec.Status,
		&rec.HeldAt,
		&rec.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
