package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/domain/outbox"
	"github.com/covu-marketplace-ledger/internal/domain/settlement"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTxRunner runs the transactional closure with a nil tx; the mocked
// repositories never touch it
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acct *account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, acct *account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByExternalRef(ctx context.Context, accountID uuid.UUID, externalRef string) (*ledger.Entry, error) {
	args := m.Called(ctx, accountID, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, filter ledger.Filter) (int64, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, msg *outbox.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockEscrowRepository struct {
	mock.Mock
}

func (m *MockEscrowRepository) Create(ctx context.Context, record *escrow.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockEscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*escrow.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Record), args.Error(1)
}

func (m *MockEscrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*escrow.Record, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Record), args.Error(1)
}

func (m *MockEscrowRepository) Resolve(ctx context.Context, id uuid.UUID, to escrow.Status, resolvedAt time.Time) error {
	args := m.Called(ctx, id, to, resolvedAt)
	return args.Error(0)
}

func (m *MockEscrowRepository) WithTx(tx pgx.Tx) escrow.Repository {
	return m
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, ord *order.Order) error {
	args := m.Called(ctx, ord)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*order.Order, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Transition(ctx context.Context, id uuid.UUID, from, to order.Status, at time.Time) error {
	args := m.Called(ctx, id, from, to, at)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkCancelled(ctx context.Context, id uuid.UUID, from order.Status, by order.Party, at time.Time) error {
	args := m.Called(ctx, id, from, by, at)
	return args.Error(0)
}

func (m *MockOrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return m
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByTransferRef(ctx context.Context, transferRef string) (*withdrawal.Request, error) {
	args := m.Called(ctx, transferRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*withdrawal.Request, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWithdrawalRepository) MarkProcessing(ctx context.Context, id uuid.UUID, transferCode string) error {
	args := m.Called(ctx, id, transferCode)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) Resolve(ctx context.Context, id uuid.UUID, to withdrawal.Status, reason string, resolvedAt time.Time) error {
	args := m.Called(ctx, id, to, reason, resolvedAt)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return m
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Record(ctx context.Context, event *settlement.ProcessedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByEventID(ctx context.Context, eventID string) (*settlement.ProcessedEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.ProcessedEvent), args.Error(1)
}

func (m *MockSettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return m
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*order.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Product), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.Authorization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.Authorization), args.Error(1)
}

func (m *MockPaymentGateway) InitiateTransfer(ctx context.Context, req paystack.TransferRequest) (*paystack.Transfer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.Transfer), args.Error(1)
}

type MockStatementStore struct {
	mock.Mock
}

func (m *MockStatementStore) GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, since, until, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockStatementStore) CountStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time) (int64, error) {
	args := m.Called(ctx, accountID, since, until)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedgerPoster struct {
	mock.Mock
}

func (m *MockLedgerPoster) Post(ctx context.Context, tx pgx.Tx, params PostParams) (*ledger.Entry, bool, error) {
	args := m.Called(ctx, tx, params)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Bool(1), args.Error(2)
}

type MockEscrowManager struct {
	mock.Mock
}

func (m *MockEscrowManager) Hold(ctx context.Context, tx pgx.Tx, ord *order.Order) (*escrow.Record, error) {
	args := m.Called(ctx, tx, ord)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Record), args.Error(1)
}

func (m *MockEscrowManager) Release(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error {
	args := m.Called(ctx, tx, rec, correlationID)
	return args.Error(0)
}

func (m *MockEscrowManager) Refund(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error {
	args := m.Called(ctx, tx, rec, correlationID)
	return args.Error(0)
}
