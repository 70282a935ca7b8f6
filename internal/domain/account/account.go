package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountFrozen     = errors.New("account is frozen")
)

// Account is a user's wallet. The balance only changes through ledger
// entries; Balance here is the materialized sum of those entries.
type Account struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Balance   int64     `json:"balance"` // Stored in minor currency units
	Currency  string    `json:"currency"`
	Active    bool      `json:"active"` // Frozen accounts reject debits
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates a wallet for the given owner with a zero balance.
func NewAccount(ownerID uuid.UUID, currency string) *Account {
	return &Account{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   0,
		Currency:  currency,
		Active:    true,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Credit adds the specified amount to the account balance
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Debit subtracts the specified amount from the account balance
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !a.Active {
		return ErrAccountFrozen
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// CanDebit checks if the account can cover a debit of the given amount
func (a *Account) CanDebit(amount int64) bool {
	return a.Active && a.Balance >= amount
}
