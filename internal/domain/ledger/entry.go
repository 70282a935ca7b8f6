package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a ledger entry by the operation that produced it
type Kind string

const (
	KindDeposit            Kind = "DEPOSIT"
	KindCredit             Kind = "CREDIT"
	KindDebit              Kind = "DEBIT"
	KindEscrowHold         Kind = "ESCROW_HOLD"
	KindEscrowRelease      Kind = "ESCROW_RELEASE"
	KindEscrowRefund       Kind = "ESCROW_REFUND"
	KindWithdrawal         Kind = "WITHDRAWAL"
	KindWithdrawalReversal Kind = "WITHDRAWAL_REVERSAL"
)

// Sign returns +1 for kinds that increase the balance, -1 for kinds
// that decrease it.
func (k Kind) Sign() int64 {
	switch k {
	case KindDebit, KindEscrowHold, KindWithdrawal:
		return -1
	default:
		return 1
	}
}

// Valid reports whether k is a known entry kind
func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindCredit, KindDebit, KindEscrowHold,
		KindEscrowRelease, KindEscrowRefund, KindWithdrawal, KindWithdrawalReversal:
		return true
	}
	return false
}

// Entry is an immutable record of a single balance movement. Amount is
// signed: negative for debits, positive for credits. BalanceBefore and
// BalanceAfter snapshot the account balance around the movement, so the
// ledger can be audited without replaying it.
type Entry struct {
	ID            uuid.UUID  `json:"id" bson:"entry_id"`
	AccountID     uuid.UUID  `json:"account_id" bson:"account_id"`
	Kind          Kind       `json:"kind" bson:"kind"`
	Amount        int64      `json:"amount" bson:"amount"` // Signed, minor units
	BalanceBefore int64      `json:"balance_before" bson:"balance_before"`
	BalanceAfter  int64      `json:"balance_after" bson:"balance_after"`
	Currency      string     `json:"currency" bson:"currency"`
	ExternalRef   string     `json:"external_ref,omitempty" bson:"external_ref,omitempty"`
	RelatedID     *uuid.UUID `json:"related_id,omitempty" bson:"related_id,omitempty"`
	Description   string     `json:"description,omitempty" bson:"description,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// NewEntry builds an entry for a movement of the given magnitude against
// an account balance. magnitude must be positive; the entry's Amount is
// signed according to the kind.
func NewEntry(accountID uuid.UUID, kind Kind, magnitude int64, balanceBefore int64, currency string) *Entry {
	amount := magnitude * kind.Sign()
	return &Entry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore + amount,
		Currency:      currency,
		CreatedAt:     time.Now(),
	}
}
