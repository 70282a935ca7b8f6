package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const ledgerColumns = `id, account_id, kind, amount, balance_before, balance_after, currency,
		external_ref, related_id, description, correlation_id, created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a ledger entry. Entries are immutable; there is no
// update path. A duplicate (account_id, external_ref) pair trips the
// unique index and maps to ErrDuplicateRef.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Kind,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Currency,
		nullString(entry.ExternalRef),
		entry.RelatedID,
		nullString(entry.Description),
		nullString(entry.CorrelationID),
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledger.ErrDuplicateRef{AccountID: entry.AccountID, ExternalRef: entry.ExternalRef}
		}
		r.logger.Error("Failed to create ledger entry", "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// GetByExternalRef retrieves the entry recorded for a processor
// reference on an account. Returns nil, nil when no entry exists so
// callers can distinguish "not yet applied" from a real failure.
func (r *LedgerRepository) GetByExternalRef(ctx context.Context, accountID uuid.UUID, externalRef string) (*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_id = $1 AND external_ref = $2
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, accountID, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by reference", "externalRef", externalRef, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by reference: %w", err)
	}

	return entry, nil
}

// GetByAccountID retrieves a page of an account's entries, newest first
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_id = $1` + filterClause(filter, 2)
	query += `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(filterArgCount(filter)+2) + ` OFFSET $` + strconv.Itoa(filterArgCount(filter)+3)

	args := append([]interface{}{accountID}, filterArgs(filter)...)
	args = append(args, limit, offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts an account's entries under the same filter as
// GetByAccountID, for pagination metadata.
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.Filter) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1` + filterClause(filter, 2)

	args := append([]interface{}{accountID}, filterArgs(filter)...)

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "accountID", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// scanEntry reads one entry from a row, converting nullable columns
func (r *LedgerRepository) scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	var externalRef, description, correlationID *string
	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Kind,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Currency,
		&externalRef,
		&entry.RelatedID,
		&description,
		&correlationID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if externalRef != nil {
		entry.ExternalRef = *externalRef
	}
	if description != nil {
		entry.Description = *description
	}
	if correlationID != nil {
		entry.CorrelationID = *correlationID
	}
	return &entry, nil
}

// filterClause renders the optional WHERE conditions, with placeholders
// starting at the given index
func filterClause(filter ledger.Filter, start int) string {
	clause := ""
	if filter.Kind != "" {
		clause += fmt.Sprintf(" AND kind = $%d", start)
		start++
	}
	if !filter.Since.IsZero() {
		clause += fmt.Sprintf(" AND created_at >= $%d", start)
		start++
	}
	if !filter.Until.IsZero() {
		clause += fmt.Sprintf(" AND created_at <= $%d", start)
	}
	return clause
}

func filterArgs(filter ledger.Filter) []interface{} {
	var args []interface{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
	}
	return args
}

func filterArgCount(filter ledger.Filter) int {
	return len(filterArgs(filter))
}

// nullString maps empty strings to NULL so unique indexes ignore them
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
