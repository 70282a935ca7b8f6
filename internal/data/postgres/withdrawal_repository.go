package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"time"

	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `id, account_id, amount, fee, currency, bank_account, transfer_ref,
		transfer_code, failure_reason, status, created_at, resolved_at`

// WithdrawalRepository implements the withdrawal.Repository interface for PostgreSQL
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository
func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new PENDING withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	query := `
		INSERT INTO withdrawals (id, account_id, amount, fee, currency, bank_account, transfer_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.AccountID,
		req.Amount,
		req.Fee,
		req.Currency,
		req.BankAccount,
		req.TransferRef,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal request", "error", err)
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return nil
}

// GetByID retrieves a withdrawal request by its ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = $1
	`

	req, err := r.scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.ErrRequestNotFound{TransferRef: id.String()}
		}
		r.logger.Error("Failed to get withdrawal request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}

	return req, nil
}

// GetByTransferRef retrieves a withdrawal request by the reference we
// sent to the processor
func (r *WithdrawalRepository) GetByTransferRef(ctx context.Context, transferRef string) (*withdrawal.Request, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE transfer_ref = $1
	`

	req, err := r.scanRequest(r.querier.QueryRow(ctx, query, transferRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.ErrRequestNotFound{TransferRef: transferRef}
		}
		r.logger.Error("Failed to get withdrawal by reference", "transferRef", transferRef, "error", err)
		return nil, fmt.Errorf("failed to get withdrawal by reference: %w", err)
	}

	return req, nil
}

// GetByAccountID retrieves a page of an account's withdrawal requests,
// newest first
func (r *WithdrawalRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*withdrawal.Request, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list withdrawals", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var requests []*withdrawal.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}

	return requests, nil
}

// CountByAccountID counts an account's withdrawal requests
func (r *WithdrawalRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM withdrawals
		WHERE account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count withdrawals", "accountID", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	return count, nil
}

// MarkProcessing records processor acceptance of the transfer call
func (r *WithdrawalRepository) MarkProcessing(ctx context.Context, id uuid.UUID, transferCode string) error {
	query := `
		UPDATE withdrawals
		SET status = $1, transfer_code = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, withdrawal.StatusProcessing, transferCode, id, withdrawal.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark withdrawal processing", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark withdrawal processing: %w", err)
	}

	if result.RowsAffected() == 0 {
		return withdrawal.ErrStateConflict{RequestID: id, To: withdrawal.StatusProcessing}
	}

	return nil
}

// Resolve moves a request to SUCCESS or FAILED. The status guard makes
// replayed transfer webhooks lose here instead of double-applying.
func (r *WithdrawalRepository) Resolve(ctx context.Context, id uuid.UUID, to withdrawal.Status, reason string, resolvedAt time.Time) error {
	query := `
		UPDATE withdrawals
		SET status = $1, failure_reason = $2, resolved_at = $3
		WHERE id = $4 AND status IN ($5, $6)
	`

	result, err := r.querier.Exec(ctx, query,
		to,
		nullString(reason),
		resolvedAt,
		id,
		withdrawal.StatusPending,
		withdrawal.StatusProcessing,
	)
	if err != nil {
		r.logger.Error("Failed to resolve withdrawal", "id", id.String(), "error", err)
		return fmt.Errorf("failed to resolve withdrawal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return withdrawal.ErrStateConflict{RequestID: id, To: to}
	}

	return nil
}

func (r *WithdrawalRepository) scanRequest(row pgx.Row) (*withdrawal.Request, error) {
	var req withdrawal.Request
	var transferCode, failureReason *string
	err := row.Scan(
		&req.ID,
		&req.AccountID,
		&req.Amount,
		&req.Fee,
		&req.Currency,
		&req.BankAccount,
		&req.TransferRef,
		&transferCode,
		&failureReason,
		&req.Status,
		&req.CreatedAt,
		&req.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if transferCode != nil {
		req.TransferCode = *transferCode
	}
	if failureReason != nil {
		req.FailureReason = *failureReason
	}
	return &req, nil
}
