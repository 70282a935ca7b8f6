package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages withdrawal request persistence
type Repository interface {
	Create(ctx context.Context, request *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// GetByTransferRef looks up a request by the reference we sent to
	// the processor; transfer webhooks carry this reference back.
	GetByTransferRef(ctx context.Context, transferRef string) (*Request, error)

	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Request, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// MarkProcessing records processor acceptance of the transfer call
	MarkProcessing(ctx context.Context, id uuid.UUID, transferCode string) error

	// Resolve moves a request to SUCCESS or FAILED, conditional on it not
	// already being terminal. A request already resolved yields
	// ErrStateConflict so settlement replays cannot double-apply.
	Resolve(ctx context.Context, id uuid.UUID, to Status, reason string, resolvedAt time.Time) error

	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates missing withdrawal request
type ErrRequestNotFound struct {
	TransferRef string
}

func (e ErrRequestNotFound) Error() string {
	return "withdrawal request not found: " + e.TransferRef
}

// Is implements the errors.Is interface for ErrRequestNotFound
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.TransferRef == "" {
		return true
	}
	return e.TransferRef == t.TransferRef
}

// ErrStateConflict indicates the request was already terminal when a
// resolution was attempted
type ErrStateConflict struct {
	RequestID uuid.UUID
	To        Status
}

func (e ErrStateConflict) Error() string {
	return "withdrawal " + e.RequestID.String() + " already resolved, cannot move to " + string(e.To)
}

// Is implements the errors.Is interface for ErrStateConflict
func (e ErrStateConflict) Is(target error) bool {
	t, ok := target.(ErrStateConflict)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}
