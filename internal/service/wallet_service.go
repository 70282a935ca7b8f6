package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/google/uuid"
)

// WalletServiceImpl implements wallet reads, creation and deposits
type WalletServiceImpl struct {
	logger         *slog.Logger
	accountRepo    account.Repository
	ledgerRepo     ledger.Repository
	withdrawalRepo withdrawal.Repository
	statements     StatementStore
	gateway        PaymentGateway
}

// NewWalletService creates the wallet service
func NewWalletService(
	logger *slog.Logger,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	withdrawalRepo withdrawal.Repository,
	statements StatementStore,
	gateway PaymentGateway,
) WalletService {
	return &WalletServiceImpl{
		logger:         logger,
		accountRepo:    accountRepo,
		ledgerRepo:     ledgerRepo,
		withdrawalRepo: withdrawalRepo,
		statements:     statements,
		gateway:        gateway,
	}
}

// CreateWallet opens a zero-balance wallet for an owner. One wallet per
// owner; a second attempt returns account.ErrDuplicateOwner.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, ownerID uuid.UUID, currency string) (*account.Account, error) {
	acct := account.NewAccount(ownerID, currency)
	if err := s.accountRepo.Create(ctx, acct); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet created",
		"account_id", acct.ID,
		"owner_id", ownerID,
		"currency", currency,
	)
	return acct, nil
}

// GetWallet returns the wallet with its current balance
func (s *WalletServiceImpl) GetWallet(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

// InitiateDeposit starts a charge with the processor and returns the
// authorization the payer must complete. No ledger entry is written
// here; the wallet is credited when the charge.success webhook arrives.
func (s *WalletServiceImpl) InitiateDeposit(ctx context.Context, accountID uuid.UUID, amount int64, email string) (*paystack.Authorization, error) {
	if amount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	reference := "dep_" + uuid.New().String()
	auth, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     email,
		Amount:    amount,
		Reference: reference,
		AccountID: acct.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize deposit: %w", err)
	}

	s.logger.Info("Deposit initiated",
		"account_id", accountID,
		"amount", amount,
		"reference", reference,
	)
	return auth, nil
}

// GetTransactions returns ledger entries for the account from the
// primary store, newest first
func (s *WalletServiceImpl) GetTransactions(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page, perPage int) ([]*ledger.Entry, int64, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	limit, offset := pagination(page, perPage)
	entries, err := s.ledgerRepo.GetByAccountID(ctx, accountID, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledgerRepo.CountByAccountID(ctx, accountID, filter)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// GetStatement serves history from the archive read model. It lags the
// primary ledger by the event pipeline's delay.
func (s *WalletServiceImpl) GetStatement(ctx context.Context, accountID uuid.UUID, since, until time.Time, page, perPage int) ([]*ledger.Entry, int64, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	limit, offset := pagination(page, perPage)
	entries, err := s.statements.GetStatement(ctx, accountID, since, until, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.statements.CountStatement(ctx, accountID, since, until)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// GetWithdrawals lists the account's withdrawal requests, newest first
func (s *WalletServiceImpl) GetWithdrawals(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*withdrawal.Request, int64, error) {
	limit, offset := pagination(page, perPage)
	requests, err := s.withdrawalRepo.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.withdrawalRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
