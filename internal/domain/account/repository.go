package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*Account, error)
	Update(ctx context.Context, account *Account) error

	// LockForUpdate acquires a row lock for balance mutations. Every
	// balance change happens under this lock inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates the row changed between read and write
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrDuplicateOwner indicates the owner already has a wallet
type ErrDuplicateOwner struct {
	OwnerID uuid.UUID
}

func (e ErrDuplicateOwner) Error() string {
	return "wallet already exists for owner: " + e.OwnerID.String()
}

// Is implements the errors.Is interface for ErrDuplicateOwner
func (e ErrDuplicateOwner) Is(target error) bool {
	t, ok := target.(ErrDuplicateOwner)
	if !ok {
		return false
	}
	if t.OwnerID == uuid.Nil {
		return true
	}
	return e.OwnerID == t.OwnerID
}
