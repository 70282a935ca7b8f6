package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/covu-marketplace-ledger/internal/api/middleware"
	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// serveAs runs a request with the identity middleware in front of the
// route, the way the router wires wallet and order endpoints
func serveAs(router *gin.Engine, accountID uuid.UUID, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(middleware.AccountIDHeader, accountID.String())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*account.Account, error) {
	args := m.Called(ctx, ownerID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockWalletService) GetWallet(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockWalletService) InitiateDeposit(ctx context.Context, accountID uuid.UUID, amount int64, email string) (*paystack.Authorization, error) {
	args := m.Called(ctx, accountID, amount, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.Authorization), args.Error(1)
}

func (m *MockWalletService) GetTransactions(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, since, until, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) GetWithdrawals(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*withdrawal.Request, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*withdrawal.Request), args.Get(1).(int64), args.Error(2)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, buyerAccountID, productID uuid.UUID, deliveryMessage string) (*order.Order, error) {
	args := m.Called(ctx, buyerAccountID, productID, deliveryMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, accountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*order.Order, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) Accept(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, sellerAccountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) MarkDelivered(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, sellerAccountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ConfirmReceipt(ctx context.Context, buyerAccountID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, buyerAccountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, accountID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, bankAccount string) (*withdrawal.Request, error) {
	args := m.Called(ctx, accountID, amount, bankAccount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalService) GetWithdrawal(ctx context.Context, accountID, requestID uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, accountID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalService) OnTransferSuccess(ctx context.Context, tx pgx.Tx, transferRef string) error {
	args := m.Called(ctx, tx, transferRef)
	return args.Error(0)
}

func (m *MockWithdrawalService) OnTransferFailed(ctx context.Context, tx pgx.Tx, transferRef, reason, eventID string) error {
	args := m.Called(ctx, tx, transferRef, reason, eventID)
	return args.Error(0)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) HandleEvent(ctx context.Context, rawBody []byte, signature string) (string, error) {
	args := m.Called(ctx, rawBody, signature)
	return args.String(0), args.Error(1)
}
