package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const orderColumns = `id, number, buyer_account_id, seller_account_id, product_id, product_name,
		product_price, delivery_fee, total_amount, delivery_message, currency, status, cancelled_by,
		created_at, accepted_at, delivered_at, confirmed_at, cancelled_at`

// timestampColumn maps a target status to the column stamped on entry
var timestampColumn = map[order.Status]string{
	order.StatusAccepted:  "accepted_at",
	order.StatusDelivered: "delivered_at",
	order.StatusConfirmed: "confirmed_at",
	order.StatusCancelled: "cancelled_at",
}

// OrderRepository implements the order.Repository interface for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new PENDING order
func (r *OrderRepository) Create(ctx context.Context, ord *order.Order) error {
	query := `
		INSERT INTO orders (id, number, buyer_account_id, seller_account_id, product_id, product_name,
			product_price, delivery_fee, total_amount, delivery_message, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		ord.ID,
		ord.Number,
		ord.BuyerAccountID,
		ord.SellerAccountID,
		ord.ProductID,
		ord.ProductName,
		ord.ProductPrice,
		ord.DeliveryFee,
		ord.TotalAmount,
		nullString(ord.DeliveryMessage),
		ord.Currency,
		ord.Status,
		ord.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_number_key" {
			return fmt.Errorf("number %s: %w", ord.Number, order.ErrDuplicateNumber)
		}
		r.logger.Error("Failed to create order", "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	ord, err := r.scanOrder(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderID: id}
		}
		r.logger.Error("Failed to get order", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return ord, nil
}

// GetByNumber retrieves an order by its human-readable number
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE number = $1
	`

	ord, err := r.scanOrder(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{}
		}
		r.logger.Error("Failed to get order by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}

	return ord, nil
}

// GetByAccountID retrieves a page of orders where the account is buyer
// or seller, newest first
func (r *OrderRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_account_id = $1 OR seller_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", "accountID", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		ord, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

// CountByAccountID counts orders where the account is buyer or seller
func (r *OrderRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE buyer_account_id = $1 OR seller_account_id = $1
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count orders", "accountID", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return count, nil
}

// Transition advances an order conditionally on its current status and
// stamps the transition timestamp. A zero row count means the order was
// not in the expected status.
func (r *OrderRepository) Transition(ctx context.Context, id uuid.UUID, from, to order.Status, at time.Time) error {
	column, ok := timestampColumn[to]
	if !ok {
		return fmt.Errorf("no transition timestamp for status %s", to)
	}

	query := fmt.Sprintf(`
		UPDATE orders
		SET status = $1, %s = $2
		WHERE id = $3 AND status = $4
	`, column)

	result, err := r.querier.Exec(ctx, query, to, at, id, from)
	if err != nil {
		r.logger.Error("Failed to transition order", "id", id.String(), "error", err)
		return fmt.Errorf("failed to transition order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrStateConflict{OrderID: id, From: from, To: to}
	}

	return nil
}

// MarkCancelled is Transition to CANCELLED plus the cancelling party
func (r *OrderRepository) MarkCancelled(ctx context.Context, id uuid.UUID, from order.Status, by order.Party, at time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, cancelled_by = $2, cancelled_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.querier.Exec(ctx, query, order.StatusCancelled, by, at, id, from)
	if err != nil {
		r.logger.Error("Failed to cancel order", "id", id.String(), "error", err)
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrStateConflict{OrderID: id, From: from, To: order.StatusCancelled}
	}

	return nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var ord order.Order
	var deliveryMessage, cancelledBy *string
	err := row.Scan(
		&ord.ID,
		&ord.Number,
		&ord.BuyerAccountID,
		&ord.SellerAccountID,
		&ord.ProductID,
		&ord.ProductName,
		&ord.ProductPrice,
		&ord.DeliveryFee,
		&ord.TotalAmount,
		&deliveryMessage,
		&ord.Currency,
		&ord.Status,
		&cancelledBy,
		&ord.CreatedAt,
		&ord.AcceptedAt,
		&ord.DeliveredAt,
		&ord.ConfirmedAt,
		&ord.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if deliveryMessage != nil {
		ord.DeliveryMessage = *deliveryMessage
	}
	if cancelledBy != nil {
		ord.CancelledBy = order.Party(*cancelledBy)
	}
	return &ord, nil
}
