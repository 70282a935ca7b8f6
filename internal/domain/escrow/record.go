// Package escrow models funds held out of a buyer's wallet until an
// order resolves. An escrow is created HELD and moves exactly once to
// RELEASED or REFUNDED.
package escrow

import (
	"time"

	"github.com/google/uuid"
)

// Status is the escrow lifecycle state
type Status string

const (
	StatusHeld     Status = "HELD"
	StatusReleased Status = "RELEASED"
	StatusRefunded Status = "REFUNDED"
)

// Terminal reports whether the status is a final state
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

// Record ties held funds to an order. On release the full Amount is
// credited to the seller; on refund it returns to the buyer.
type Record struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	BuyerAccountID  uuid.UUID  `json:"buyer_account_id"`
	SellerAccountID uuid.UUID  `json:"seller_account_id"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	Status          Status     `json:"status"`
	HeldAt          time.Time  `json:"held_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// NewRecord creates a HELD escrow for an order
func NewRecord(orderID, buyerAccountID, sellerAccountID uuid.UUID, amount int64, currency string) *Record {
	return &Record{
		ID:              uuid.New(),
		OrderID:         orderID,
		BuyerAccountID:  buyerAccountID,
		SellerAccountID: sellerAccountID,
		Amount:          amount,
		Currency:        currency,
		Status:          StatusHeld,
		HeldAt:          time.Now(),
	}
}
