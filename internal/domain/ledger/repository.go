package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows ledger listings. Zero values mean "no constraint".
type Filter struct {
	Kind  Kind
	Since time.Time
	Until time.Time
}

// Repository manages ledger entry persistence with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetByExternalRef looks up an entry by its processor reference.
	// Used for idempotency: a reference already recorded for the account
	// means the movement was applied.
	GetByExternalRef(ctx context.Context, accountID uuid.UUID, externalRef string) (*Entry, error)

	GetByAccountID(ctx context.Context, accountID uuid.UUID, filter Filter, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID, filter Filter) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateRef indicates the external reference was already applied
// to the account
type ErrDuplicateRef struct {
	AccountID   uuid.UUID
	ExternalRef string
}

func (e ErrDuplicateRef) Error() string {
	return "ledger entry already recorded for reference: " + e.ExternalRef
}

// Is implements the errors.Is interface for ErrDuplicateRef
func (e ErrDuplicateRef) Is(target error) bool {
	t, ok := target.(ErrDuplicateRef)
	if !ok {
		return false
	}
	if t.ExternalRef == "" {
		return true
	}
	return e.AccountID == t.AccountID && e.ExternalRef == t.ExternalRef
}
