package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages escrow persistence
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Record, error)

	// Resolve moves a HELD escrow to the given terminal status. The
	// update is conditional on the row still being HELD; a losing racer
	// gets ErrStateConflict and must re-read to decide the outcome.
	Resolve(ctx context.Context, id uuid.UUID, to Status, resolvedAt time.Time) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEscrowNotFound indicates missing escrow record
type ErrEscrowNotFound struct {
	OrderID uuid.UUID
}

func (e ErrEscrowNotFound) Error() string {
	return "escrow not found for order: " + e.OrderID.String()
}

// Is implements the errors.Is interface for ErrEscrowNotFound
func (e ErrEscrowNotFound) Is(target error) bool {
	t, ok := target.(ErrEscrowNotFound)
	if !ok {
		return false
	}
	if t.OrderID == uuid.Nil {
		return true
	}
	return e.OrderID == t.OrderID
}

// ErrStateConflict indicates the escrow was no longer HELD when a
// terminal transition was attempted
type ErrStateConflict struct {
	EscrowID uuid.UUID
	To       Status
}

func (e ErrStateConflict) Error() string {
	return "escrow " + e.EscrowID.String() + " is not HELD, cannot move to " + string(e.To)
}

// Is implements the errors.Is interface for ErrStateConflict
func (e ErrStateConflict) Is(target error) bool {
	t, ok := target.(ErrStateConflict)
	if !ok {
		return false
	}
	if t.EscrowID == uuid.Nil {
		return true
	}
	return e.EscrowID == t.EscrowID
}

// ErrDuplicateEscrow indicates an escrow already exists for the order
type ErrDuplicateEscrow struct {
	OrderID uuid.UUID
}

func (e ErrDuplicateEscrow) Error() string {
	return "escrow already exists for order: " + e.OrderID.String()
}
