// Package service implements the business operations of the wallet:
// the account ledger, escrow management, the order lifecycle, the
// withdrawal processor and settlement handling. Each multi-entity money
// movement runs inside a single database transaction.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotAllowed rejects an operation by an account that is not the
// right participant of the order
var ErrNotAllowed = errors.New("account is not allowed to perform this operation")

// TxRunner executes a function inside a database transaction.
// persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PostParams describes one ledger posting. Amount is the positive
// magnitude; the kind determines the direction.
type PostParams struct {
	AccountID     uuid.UUID
	Kind          ledger.Kind
	Amount        int64
	ExternalRef   string
	RelatedID     *uuid.UUID
	Description   string
	CorrelationID string
}

// LedgerPoster appends ledger entries under a row lock on the account.
// It is the only path through which balances change.
type LedgerPoster interface {
	// Post applies one posting inside the given transaction. When the
	// params carry an ExternalRef that was already applied to the
	// account, Post returns the prior entry with applied=false instead
	// of double-applying.
	Post(ctx context.Context, tx pgx.Tx, params PostParams) (entry *ledger.Entry, applied bool, err error)
}

// EscrowManager moves escrows through their HELD to terminal lifecycle
type EscrowManager interface {
	// Hold debits the buyer and creates a HELD escrow for the order
	Hold(ctx context.Context, tx pgx.Tx, ord *order.Order) (*escrow.Record, error)

	// Release credits the seller and closes the escrow as RELEASED.
	// A second release of the same escrow is a no-op success; a release
	// after refund fails with escrow.ErrStateConflict.
	Release(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error

	// Refund credits the buyer and closes the escrow as REFUNDED, with
	// the same idempotency contract as Release.
	Refund(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error
}

// PaymentGateway is the subset of the processor client the services
// depend on. paystack.Client satisfies it.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error)
	InitiateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.Transfer, error)
}

// StatementStore queries the archived ledger history read model.
// mongo.HistoryRepository satisfies it.
type StatementStore interface {
	GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, limit, offset int) ([]*ledger.Entry, error)
	CountStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time) (int64, error)
}

// WalletService covers wallet creation, balance reads, deposits and
// transaction history
type WalletService interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*account.Account, error)
	GetWallet(ctx context.Context, accountID uuid.UUID) (*account.Account, error)
	InitiateDeposit(ctx context.Context, accountID uuid.UUID, amount int64, email string) (*paystack.Authorization, error)
	GetTransactions(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page, perPage int) ([]*ledger.Entry, int64, error)
	GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, page, perPage int) ([]*ledger.Entry, int64, error)
	GetWithdrawals(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*withdrawal.Request, int64, error)
}

// OrderService drives the order state machine. Transitions that settle
// funds combine the status write and the escrow movement atomically.
type OrderService interface {
	CreateOrder(ctx context.Context, buyerAccountID, productID uuid.UUID, deliveryMessage string) (*order.Order, error)
	GetOrder(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error)
	ListOrders(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*order.Order, int64, error)
	Accept(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error)
	MarkDelivered(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error)
	ConfirmReceipt(ctx context.Context, buyerAccountID, orderID uuid.UUID) (*order.Order, error)
	Cancel(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error)
}

// WithdrawalService moves funds out to external bank accounts
type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, bankAccount string) (*withdrawal.Request, error)
	GetWithdrawal(ctx context.Context, accountID, requestID uuid.UUID) (*withdrawal.Request, error)

	// OnTransferSuccess and OnTransferFailed resolve an in-flight
	// withdrawal inside the settlement transaction. They are invoked by
	// the settlement handler with its own transaction so the
	// idempotency record and the resolution commit together.
	OnTransferSuccess(ctx context.Context, tx pgx.Tx, transferRef string) error
	OnTransferFailed(ctx context.Context, tx pgx.Tx, transferRef, reason, eventID string) error
}

// SettlementService applies verified processor webhooks exactly once
type SettlementService interface {
	// HandleEvent verifies the signature, decodes the payload and
	// applies the event. A replayed event id returns the recorded
	// outcome without reapplying.
	HandleEvent(ctx context.Context, rawBody []byte, signature string) (outcome string, err error)
}
