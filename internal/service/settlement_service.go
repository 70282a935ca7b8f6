package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/settlement"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/jackc/pgx/v5"
)

// Outcome strings recorded per processed settlement event
const (
	OutcomeApplied = "APPLIED"
	OutcomeSkipped = "SKIPPED"
)

// SettlementServiceImpl applies processor webhooks to the ledger
type SettlementServiceImpl struct {
	logger         *slog.Logger
	db             TxRunner
	settlementRepo settlement.Repository
	poster         LedgerPoster
	withdrawals    WithdrawalService
	webhookSecret  string
}

// NewSettlementService creates the settlement webhook service
func NewSettlementService(
	logger *slog.Logger,
	db TxRunner,
	settlementRepo settlement.Repository,
	poster LedgerPoster,
	withdrawals WithdrawalService,
	webhookSecret string,
) SettlementService {
	return &SettlementServiceImpl{
		logger:         logger,
		db:             db,
		settlementRepo: settlementRepo,
		poster:         poster,
		withdrawals:    withdrawals,
		webhookSecret:  webhookSecret,
	}
}

// HandleEvent verifies and applies one webhook delivery. The
// processed-event record and the event's ledger effect commit in one
// transaction, so each event id is applied at most once; a replay
// returns the outcome recorded the first time.
func (s *SettlementServiceImpl) HandleEvent(ctx context.Context, rawBody []byte, signature string) (string, error) {
	if !settlement.VerifySignature(s.webhookSecret, rawBody, signature) {
		return "", settlement.ErrSignatureInvalid
	}

	event, err := settlement.ParseEvent(rawBody)
	if err != nil {
		return "", err
	}

	log := s.logger.With(
		"event_id", event.EventID(),
		"event_type", event.Type(),
		"reference", event.Reference(),
	)

	if prior, err := s.settlementRepo.GetByEventID(ctx, event.EventID()); err == nil {
		log.Info("Settlement event replayed, returning recorded outcome", "outcome", prior.Outcome)
		return prior.Outcome, nil
	} else if !errors.Is(err, settlement.ErrEventNotFound{}) {
		return "", err
	}

	outcome := OutcomeApplied
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		applied, err := s.apply(ctx, tx, event)
		if err != nil {
			return err
		}
		if !applied {
			outcome = OutcomeSkipped
		}

		record := &settlement.ProcessedEvent{
			EventID:     event.EventID(),
			Type:        event.Type(),
			Reference:   event.Reference(),
			Outcome:     outcome,
			ProcessedAt: time.Now(),
		}
		return s.settlementRepo.WithTx(tx).Record(ctx, record)
	})
	if err != nil {
		// Two deliveries of the same event can race past the read above;
		// the primary key decides, and the loser reports the winner's
		// outcome.
		if errors.Is(err, settlement.ErrAlreadyProcessed{}) {
			prior, readErr := s.settlementRepo.GetByEventID(ctx, event.EventID())
			if readErr != nil {
				return "", readErr
			}
			log.Info("Settlement event raced a concurrent delivery", "outcome", prior.Outcome)
			return prior.Outcome, nil
		}
		return "", err
	}

	metrics.SettlementEventsTotal.WithLabelValues(string(event.Type()), outcome).Inc()
	log.Info("Settlement event processed", "outcome", outcome)
	return outcome, nil
}

// apply dispatches one verified event inside the transaction. It
// reports whether the event had a ledger effect.
func (s *SettlementServiceImpl) apply(ctx context.Context, tx pgx.Tx, event settlement.Event) (bool, error) {
	switch e := event.(type) {
	case settlement.ChargeSucceeded:
		_, applied, err := s.poster.Post(ctx, tx, PostParams{
			AccountID:     e.AccountID,
			Kind:          ledger.KindDeposit,
			Amount:        e.Amount,
			ExternalRef:   e.Ref,
			Description:   "Deposit " + e.Ref,
			CorrelationID: e.ID,
		})
		if err != nil {
			return false, err
		}
		return applied, nil

	case settlement.TransferSucceeded:
		if err := s.withdrawals.OnTransferSuccess(ctx, tx, e.Ref); err != nil {
			return false, err
		}
		return true, nil

	case settlement.TransferFailed:
		if err := s.withdrawals.OnTransferFailed(ctx, tx, e.Ref, e.Reason, e.ID); err != nil {
			return false, err
		}
		return true, nil

	default:
		return false, settlement.ErrUnknownEvent{Name: string(event.Type())}
	}
}
