package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowManagerImpl pairs each escrow state change with its ledger
// postings inside the caller's transaction
type EscrowManagerImpl struct {
	logger     *slog.Logger
	escrowRepo escrow.Repository
	poster     LedgerPoster
}

// NewEscrowManager creates the escrow lifecycle component
func NewEscrowManager(logger *slog.Logger, escrowRepo escrow.Repository, poster LedgerPoster) EscrowManager {
	return &EscrowManagerImpl{
		logger:     logger,
		escrowRepo: escrowRepo,
		poster:     poster,
	}
}

// Hold debits the order total from the buyer and creates the HELD
// escrow. Insufficient funds abort the transaction before any escrow
// row exists.
func (m *EscrowManagerImpl) Hold(ctx context.Context, tx pgx.Tx, ord *order.Order) (*escrow.Record, error) {
	rec := escrow.NewRecord(ord.ID, ord.BuyerAccountID, ord.SellerAccountID, ord.TotalAmount, ord.Currency)

	_, _, err := m.poster.Post(ctx, tx, PostParams{
		AccountID:   ord.BuyerAccountID,
		Kind:        ledger.KindEscrowHold,
		Amount:      ord.TotalAmount,
		RelatedID:   &ord.ID,
		Description: "Escrow hold for order " + ord.Number,
	})
	if err != nil {
		return nil, err
	}

	if err := m.escrowRepo.WithTx(tx).Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create escrow for order %s: %w", ord.ID, err)
	}

	metrics.EscrowsTotal.WithLabelValues(string(escrow.StatusHeld)).Inc()
	m.logger.Info("Escrow held",
		"escrow_id", rec.ID,
		"order_id", ord.ID,
		"amount", rec.Amount,
	)
	return rec, nil
}

// Release closes the escrow as RELEASED and credits the seller with the
// full held amount
func (m *EscrowManagerImpl) Release(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error {
	return m.resolve(ctx, tx, rec, escrow.StatusReleased, rec.SellerAccountID, ledger.KindEscrowRelease, correlationID)
}

// Refund closes the escrow as REFUNDED and returns the full held amount
// to the buyer
func (m *EscrowManagerImpl) Refund(ctx context.Context, tx pgx.Tx, rec *escrow.Record, correlationID string) error {
	return m.resolve(ctx, tx, rec, escrow.StatusRefunded, rec.BuyerAccountID, ledger.KindEscrowRefund, correlationID)
}

// resolve performs the conditional HELD -> terminal transition first, so
// that of two racing resolutions only the winner posts a credit. The
// loser re-reads the row: landing on the same terminal state is treated
// as already done, the opposite one is a conflict.
func (m *EscrowManagerImpl) resolve(
	ctx context.Context,
	tx pgx.Tx,
	rec *escrow.Record,
	to escrow.Status,
	creditAccountID uuid.UUID,
	kind ledger.Kind,
	correlationID string,
) error {
	escrowRepoTx := m.escrowRepo.WithTx(tx)
	now := time.Now()

	if err := escrowRepoTx.Resolve(ctx, rec.ID, to, now); err != nil {
		if errors.Is(err, escrow.ErrStateConflict{}) {
			current, readErr := escrowRepoTx.GetByID(ctx, rec.ID)
			if readErr != nil {
				return readErr
			}
			if current.Status == to {
				m.logger.Info("Escrow already resolved, skipping",
					"escrow_id", rec.ID,
					"status", current.Status,
				)
				return nil
			}
			return escrow.ErrStateConflict{EscrowID: rec.ID, To: to}
		}
		return fmt.Errorf("failed to resolve escrow %s: %w", rec.ID, err)
	}

	_, _, err := m.poster.Post(ctx, tx, PostParams{
		AccountID:     creditAccountID,
		Kind:          kind,
		Amount:        rec.Amount,
		RelatedID:     &rec.OrderID,
		Description:   fmt.Sprintf("Escrow %s for order %s", strings.ToLower(string(to)), rec.OrderID),
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}

	metrics.EscrowsTotal.WithLabelValues(string(to)).Inc()
	m.logger.Info("Escrow resolved",
		"escrow_id", rec.ID,
		"order_id", rec.OrderID,
		"status", to,
		"amount", rec.Amount,
	)
	return nil
}
