package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateNumber indicates the generated order number already
// exists; the caller should regenerate and retry
var ErrDuplicateNumber = errors.New("order number already exists")

// Repository manages order persistence
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Order, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// Transition advances an order's status conditionally on its current
	// status, stamping the transition timestamp. A row not in the `from`
	// status yields ErrStateConflict.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error

	// MarkCancelled is Transition to CANCELLED plus the cancelling party
	MarkCancelled(ctx context.Context, id uuid.UUID, from Status, by Party, at time.Time) error

	WithTx(tx pgx.Tx) Repository
}

// ErrOrderNotFound indicates missing order
type ErrOrderNotFound struct {
	OrderID uuid.UUID
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + e.OrderID.String()
}

// Is implements the errors.Is interface for ErrOrderNotFound
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	if t.OrderID == uuid.Nil {
		return true
	}
	return e.OrderID == t.OrderID
}

// ErrStateConflict indicates the order was not in the expected status
// when a transition was attempted
type ErrStateConflict struct {
	OrderID uuid.UUID
	From    Status
	To      Status
}

func (e ErrStateConflict) Error() string {
	return "order " + e.OrderID.String() + " is not " + string(e.From) + ", cannot move to " + string(e.To)
}

// Is implements the errors.Is interface for ErrStateConflict
func (e ErrStateConflict) Is(target error) bool {
	t, ok := target.(ErrStateConflict)
	if !ok {
		return false
	}
	if t.OrderID == uuid.Nil {
		return true
	}
	return e.OrderID == t.OrderID
}
