// Package withdrawal models outbound transfers from a seller's wallet to
// an external bank account. The wallet is debited amount plus fee the
// moment a request is accepted locally; the transfer itself settles
// asynchronously and a failure credits the debit back.
package withdrawal

import (
	"time"

	"github.com/google/uuid"
)

// Status is the withdrawal lifecycle state
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status is a final state
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Request is a single withdrawal attempt. TransferRef is our reference
// sent to the processor; TransferCode is the processor's own identifier,
// empty until the transfer call is accepted.
type Request struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Amount        int64      `json:"amount"`
	Fee           int64      `json:"fee"`
	Currency      string     `json:"currency"`
	BankAccount   string     `json:"bank_account"`
	TransferRef   string     `json:"transfer_ref"`
	TransferCode  string     `json:"transfer_code,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// NewRequest creates a PENDING withdrawal request
func NewRequest(accountID uuid.UUID, amount, fee int64, currency, bankAccount string) *Request {
	id := uuid.New()
	return &Request{
		ID:          id,
		AccountID:   accountID,
		Amount:      amount,
		Fee:         fee,
		Currency:    currency,
		BankAccount: bankAccount,
		TransferRef: "WDR-" + id.String(),
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

// TotalDebit is what leaves the wallet: the requested amount plus the
// fee. The processor pays out Amount; the fee is retained.
func (r *Request) TotalDebit() int64 {
	return r.Amount + r.Fee
}
