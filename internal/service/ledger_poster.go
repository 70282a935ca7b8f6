package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/outbox"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/jackc/pgx/v5"
)

// LedgerPosterImpl writes balance movements as account update + ledger
// entry + outbox message, all against the caller's transaction
type LedgerPosterImpl struct {
	logger      *slog.Logger
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
}

// NewLedgerPoster creates the single writing path for account balances
func NewLedgerPoster(
	logger *slog.Logger,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
) LedgerPoster {
	return &LedgerPosterImpl{
		logger:      logger,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
	}
}

// Post locks the account row, applies the movement to the balance and
// appends the ledger entry plus its outbox message. The row lock
// serializes concurrent movements on the same account; the balance
// snapshots on the entry are therefore consistent.
func (p *LedgerPosterImpl) Post(ctx context.Context, tx pgx.Tx, params PostParams) (*ledger.Entry, bool, error) {
	log := p.logger
	if params.CorrelationID != "" {
		log = log.With("correlation_id", params.CorrelationID)
	}

	accountRepoTx := p.accountRepo.WithTx(tx)
	ledgerRepoTx := p.ledgerRepo.WithTx(tx)
	outboxRepoTx := p.outboxRepo.WithTx(tx)

	if params.ExternalRef != "" {
		existing, err := ledgerRepoTx.GetByExternalRef(ctx, params.AccountID, params.ExternalRef)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check external ref %s: %w", params.ExternalRef, err)
		}
		if existing != nil {
			log.Info("Posting already applied, skipping",
				"account_id", params.AccountID,
				"external_ref", params.ExternalRef,
				"entry_id", existing.ID,
			)
			return existing, false, nil
		}
	}

	acct, err := accountRepoTx.LockForUpdate(ctx, params.AccountID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock account %s: %w", params.AccountID, err)
	}

	entry := ledger.NewEntry(acct.ID, params.Kind, params.Amount, acct.Balance, acct.Currency)
	entry.ExternalRef = params.ExternalRef
	entry.RelatedID = params.RelatedID
	entry.Description = params.Description
	entry.CorrelationID = params.CorrelationID

	if params.Kind.Sign() < 0 {
		err = acct.Debit(params.Amount)
	} else {
		err = acct.Credit(params.Amount)
	}
	if err != nil {
		return nil, false, err
	}

	if err := accountRepoTx.Update(ctx, acct); err != nil {
		return nil, false, fmt.Errorf("failed to update account %s: %w", acct.ID, err)
	}

	if err := ledgerRepoTx.Create(ctx, entry); err != nil {
		return nil, false, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := outboxRepoTx.Create(ctx, msg); err != nil {
		return nil, false, fmt.Errorf("failed to create outbox message: %w", err)
	}

	metrics.LedgerEntriesTotal.WithLabelValues(string(entry.Kind)).Inc()
	log.Info("Ledger entry posted",
		"account_id", acct.ID,
		"entry_id", entry.ID,
		"kind", entry.Kind,
		"amount", entry.Amount,
		"balance_after", entry.BalanceAfter,
	)

	return entry, true, nil
}
