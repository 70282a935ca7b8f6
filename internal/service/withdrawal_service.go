package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalServiceImpl implements the withdrawal processor
type WithdrawalServiceImpl struct {
	logger         *slog.Logger
	db             TxRunner
	accountRepo    account.Repository
	withdrawalRepo withdrawal.Repository
	poster         LedgerPoster
	gateway        PaymentGateway
	fees           withdrawal.FeeSchedule
}

// NewWithdrawalService creates the withdrawal service
func NewWithdrawalService(
	logger *slog.Logger,
	db TxRunner,
	accountRepo account.Repository,
	withdrawalRepo withdrawal.Repository,
	poster LedgerPoster,
	gateway PaymentGateway,
	fees withdrawal.FeeSchedule,
) WithdrawalService {
	return &WithdrawalServiceImpl{
		logger:         logger,
		db:             db,
		accountRepo:    accountRepo,
		withdrawalRepo: withdrawalRepo,
		poster:         poster,
		gateway:        gateway,
		fees:           fees,
	}
}

// RequestWithdrawal debits amount plus fee from the wallet, records the
// PENDING request and then asks the processor to pay out the amount.
// The debit commits before the transfer call; a synchronous rejection
// or an unreachable processor reverses it immediately, an asynchronous
// failure reverses it when the transfer.failed webhook arrives.
func (s *WithdrawalServiceImpl) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64, bankAccount string) (*withdrawal.Request, error) {
	fee, err := s.fees.FeeFor(amount)
	if err != nil {
		return nil, err
	}

	acct, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	req := withdrawal.NewRequest(accountID, amount, fee, acct.Currency, bankAccount)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, _, err := s.poster.Post(ctx, tx, PostParams{
			AccountID:   accountID,
			Kind:        ledger.KindWithdrawal,
			Amount:      req.TotalDebit(),
			ExternalRef: req.TransferRef,
			RelatedID:   &req.ID,
			Description: "Withdrawal " + req.TransferRef,
		})
		if err != nil {
			return err
		}
		return s.withdrawalRepo.WithTx(tx).Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	transfer, err := s.gateway.InitiateTransfer(ctx, paystack.TransferRequest{
		Amount:    req.Amount,
		Reference: req.TransferRef,
		Recipient: bankAccount,
		Reason:    "wallet withdrawal",
	})
	if err != nil {
		// Reverse when the processor definitively did not take the
		// transfer: an explicit rejection, or a transport failure before
		// the request was ever sent.
		if errors.Is(err, paystack.RejectionError{}) || errors.Is(err, paystack.ErrUnreachable) {
			if revErr := s.reverse(ctx, req, err.Error()); revErr != nil {
				s.logger.Error("Failed to reverse unprocessed withdrawal",
					"request_id", req.ID,
					"error", revErr,
				)
				return nil, revErr
			}
			return nil, err
		}

		// The processor may still execute a transfer we could not get an
		// answer for. The request stays PENDING until a webhook or
		// reconciliation resolves it.
		s.logger.Warn("Transfer call did not complete, leaving request pending",
			"request_id", req.ID,
			"transfer_ref", req.TransferRef,
			"error", err,
		)
		return nil, err
	}

	if err := s.withdrawalRepo.MarkProcessing(ctx, req.ID, transfer.TransferCode); err != nil {
		s.logger.Error("Failed to mark withdrawal processing",
			"request_id", req.ID,
			"transfer_code", transfer.TransferCode,
			"error", err,
		)
	} else {
		req.Status = withdrawal.StatusProcessing
		req.TransferCode = transfer.TransferCode
	}

	metrics.WithdrawalsTotal.WithLabelValues(string(req.Status)).Inc()
	s.logger.Info("Withdrawal requested",
		"request_id", req.ID,
		"account_id", accountID,
		"amount", amount,
		"fee", fee,
		"transfer_ref", req.TransferRef,
	)
	return req, nil
}

// GetWithdrawal returns a request visible to its owner
func (s *WithdrawalServiceImpl) GetWithdrawal(ctx context.Context, accountID, requestID uuid.UUID) (*withdrawal.Request, error) {
	req, err := s.withdrawalRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.AccountID != accountID {
		return nil, ErrNotAllowed
	}
	return req, nil
}

// OnTransferSuccess marks the withdrawal SUCCESS. The funds already left
// the wallet when the request was made, so there is no ledger effect.
func (s *WithdrawalServiceImpl) OnTransferSuccess(ctx context.Context, tx pgx.Tx, transferRef string) error {
	repoTx := s.withdrawalRepo.WithTx(tx)

	req, err := repoTx.GetByTransferRef(ctx, transferRef)
	if err != nil {
		return err
	}

	if err := repoTx.Resolve(ctx, req.ID, withdrawal.StatusSuccess, "", time.Now()); err != nil {
		if errors.Is(err, withdrawal.ErrStateConflict{}) {
			current, readErr := repoTx.GetByID(ctx, req.ID)
			if readErr != nil {
				return readErr
			}
			if current.Status == withdrawal.StatusSuccess {
				return nil
			}
		}
		return err
	}

	s.logger.Info("Withdrawal settled",
		"request_id", req.ID,
		"transfer_ref", transferRef,
	)
	return nil
}

// OnTransferFailed marks the withdrawal FAILED and credits amount plus
// fee back to the wallet. The reversal entry is keyed on the transfer
// reference, so it posts at most once no matter how the failure is
// learned or how often it is replayed.
func (s *WithdrawalServiceImpl) OnTransferFailed(ctx context.Context, tx pgx.Tx, transferRef, reason, eventID string) error {
	repoTx := s.withdrawalRepo.WithTx(tx)

	req, err := repoTx.GetByTransferRef(ctx, transferRef)
	if err != nil {
		return err
	}

	if err := repoTx.Resolve(ctx, req.ID, withdrawal.StatusFailed, reason, time.Now()); err != nil {
		if errors.Is(err, withdrawal.ErrStateConflict{}) {
			current, readErr := repoTx.GetByID(ctx, req.ID)
			if readErr != nil {
				return readErr
			}
			if current.Status != withdrawal.StatusFailed {
				return err
			}
			// Already FAILED; fall through so the reversal posting stays
			// idempotent rather than assumed.
		} else {
			return err
		}
	}

	_, applied, err := s.poster.Post(ctx, tx, PostParams{
		AccountID:     req.AccountID,
		Kind:          ledger.KindWithdrawalReversal,
		Amount:        req.TotalDebit(),
		ExternalRef:   "rev-" + req.TransferRef,
		RelatedID:     &req.ID,
		Description:   "Reversal of " + req.TransferRef,
		CorrelationID: eventID,
	})
	if err != nil {
		return err
	}

	s.logger.Info("Withdrawal failed, wallet credited back",
		"request_id", req.ID,
		"transfer_ref", transferRef,
		"reason", reason,
		"reversal_applied", applied,
	)
	return nil
}

// reverse undoes the local debit after a synchronous processor
// rejection, in one transaction with the FAILED resolution
func (s *WithdrawalServiceImpl) reverse(ctx context.Context, req *withdrawal.Request, reason string) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.withdrawalRepo.WithTx(tx).Resolve(ctx, req.ID, withdrawal.StatusFailed, reason, time.Now()); err != nil {
			return err
		}
		_, _, err := s.poster.Post(ctx, tx, PostParams{
			AccountID:   req.AccountID,
			Kind:        ledger.KindWithdrawalReversal,
			Amount:      req.TotalDebit(),
			ExternalRef: "rev-" + req.TransferRef,
			RelatedID:   &req.ID,
			Description: "Reversal of " + req.TransferRef,
		})
		if err != nil {
			return err
		}
		return nil
	})
}
