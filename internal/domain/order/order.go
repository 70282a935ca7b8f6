// Package order models the marketplace order lifecycle. Money never
// moves here directly; transitions that settle funds go through escrow.
package order

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDelivered Status = "DELIVERED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status is a final state
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Party identifies who performed a cancellation
type Party string

const (
	PartyBuyer  Party = "BUYER"
	PartySeller Party = "SELLER"
)

// Order snapshots the product price and delivery fee at creation time so
// later catalog edits cannot change what was escrowed.
type Order struct {
	ID              uuid.UUID  `json:"id"`
	Number          string     `json:"number"`
	BuyerAccountID  uuid.UUID  `json:"buyer_account_id"`
	SellerAccountID uuid.UUID  `json:"seller_account_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	ProductName     string     `json:"product_name"`
	ProductPrice    int64      `json:"product_price"`
	DeliveryFee     int64      `json:"delivery_fee"`
	TotalAmount     int64      `json:"total_amount"`
	DeliveryMessage string     `json:"delivery_message,omitempty"`
	Currency        string     `json:"currency"`
	Status          Status     `json:"status"`
	CancelledBy     Party      `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// NewOrder creates a PENDING order from a product snapshot
func NewOrder(buyerAccountID uuid.UUID, product *Product, deliveryMessage string) *Order {
	return &Order{
		ID:              uuid.New(),
		Number:          NewNumber(),
		BuyerAccountID:  buyerAccountID,
		SellerAccountID: product.SellerAccountID,
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductPrice:    product.Price,
		DeliveryFee:     product.DeliveryFee,
		TotalAmount:     product.Price + product.DeliveryFee,
		DeliveryMessage: deliveryMessage,
		Currency:        product.Currency,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
}

// NewNumber generates a human-readable order number of the form
// ORD-YYYYMMDD-XXXXXX. The suffix is short enough to collide under
// load, so callers that persist the number must handle
// ErrDuplicateNumber by regenerating.
func NewNumber() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		copy(buf, id[:])
	}
	return "ORD-" + time.Now().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf))
}

// CanTransitionTo reports whether the order may move from its current
// status to the given one
func (o *Order) CanTransitionTo(to Status) bool {
	switch to {
	case StatusAccepted:
		return o.Status == StatusPending
	case StatusDelivered:
		return o.Status == StatusAccepted
	case StatusConfirmed:
		return o.Status == StatusDelivered
	case StatusCancelled:
		return !o.Status.Terminal()
	}
	return false
}
