package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/settlement"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

func signedBody(body string) (rawBody []byte, signature string) {
	raw := []byte(body)
	return raw, settlement.Sign(webhookSecret, raw)
}

func TestSettlementService_HandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("ChargeSucceededCreditsWallet", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, nil, webhookSecret)

		accountID := uuid.New()
		body, sig := signedBody(fmt.Sprintf(`{
			"event": "charge.success",
			"data": {
				"id": 302961,
				"reference": "dep_ref_001",
				"amount": 10000,
				"metadata": {"account_id": %q}
			}
		}`, accountID))

		settlementRepo.On("GetByEventID", ctx, "302961").
			Return(nil, settlement.ErrEventNotFound{EventID: "302961"}).Once()
		poster.On("Post", ctx, nil, mock.MatchedBy(func(p PostParams) bool {
			return p.AccountID == accountID &&
				p.Kind == ledger.KindDeposit &&
				p.Amount == 10000 &&
				p.ExternalRef == "dep_ref_001"
		})).Return(&ledger.Entry{}, true, nil).Once()
		settlementRepo.On("Record", ctx, mock.MatchedBy(func(e *settlement.ProcessedEvent) bool {
			return e.EventID == "302961" &&
				e.Type == settlement.TypeChargeSucceeded &&
				e.Outcome == OutcomeApplied
		})).Return(nil).Once()

		outcome, err := svc.HandleEvent(ctx, body, sig)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		poster.AssertExpectations(t)
		settlementRepo.AssertExpectations(t)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, nil, webhookSecret)

		body := []byte(`{"event": "charge.success"}`)

		_, err := svc.HandleEvent(ctx, body, "deadbeef")

		assert.ErrorIs(t, err, settlement.ErrSignatureInvalid)
		settlementRepo.AssertNotCalled(t, "GetByEventID")
	})

	t.Run("ReplayReturnsRecordedOutcome", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, nil, webhookSecret)

		body, sig := signedBody(fmt.Sprintf(`{
			"event": "charge.success",
			"data": {"id": 302961, "reference": "dep_ref_001", "amount": 10000, "metadata": {"account_id": %q}}
		}`, uuid.New()))

		settlementRepo.On("GetByEventID", ctx, "302961").
			Return(&settlement.ProcessedEvent{EventID: "302961", Outcome: OutcomeApplied}, nil).Once()

		outcome, err := svc.HandleEvent(ctx, body, sig)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		poster.AssertNotCalled(t, "Post")
		settlementRepo.AssertNotCalled(t, "Record")
	})

	t.Run("RacedDeliveryReportsWinnerOutcome", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, nil, webhookSecret)

		accountID := uuid.New()
		body, sig := signedBody(fmt.Sprintf(`{
			"event": "charge.success",
			"data": {"id": 302962, "reference": "dep_ref_002", "amount": 5000, "metadata": {"account_id": %q}}
		}`, accountID))

		settlementRepo.On("GetByEventID", ctx, "302962").
			Return(nil, settlement.ErrEventNotFound{EventID: "302962"}).Once()
		poster.On("Post", ctx, nil, mock.AnythingOfType("PostParams")).
			Return(&ledger.Entry{}, false, nil).Once()
		settlementRepo.On("Record", ctx, mock.AnythingOfType("*settlement.ProcessedEvent")).
			Return(settlement.ErrAlreadyProcessed{EventID: "302962"}).Once()
		settlementRepo.On("GetByEventID", ctx, "302962").
			Return(&settlement.ProcessedEvent{EventID: "302962", Outcome: OutcomeApplied}, nil).Once()

		outcome, err := svc.HandleEvent(ctx, body, sig)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
	})

	t.Run("TransferFailedReversesWithdrawal", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		withdrawalRepo := new(MockWithdrawalRepository)
		withdrawals := newWithdrawalService(new(MockAccountRepository), withdrawalRepo, poster, new(MockPaymentGateway))
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, withdrawals, webhookSecret)

		req := withdrawal.NewRequest(uuid.New(), 20000, 150, "NGN", "RCP_abc123")
		body, sig := signedBody(fmt.Sprintf(`{
			"event": "transfer.failed",
			"data": {"id": 88001, "reference": %q, "transfer_code": "TRF_xyz789", "reason": "insufficient processor balance"}
		}`, req.TransferRef))

		settlementRepo.On("GetByEventID", ctx, "88001").
			Return(nil, settlement.ErrEventNotFound{EventID: "88001"}).Once()
		withdrawalRepo.On("GetByTransferRef", ctx, req.TransferRef).Return(req, nil).Once()
		withdrawalRepo.On("Resolve", ctx, req.ID, withdrawal.StatusFailed, "insufficient processor balance", mock.AnythingOfType("time.Time")).Return(nil).Once()
		poster.On("Post", ctx, nil, mock.MatchedBy(func(p PostParams) bool {
			return p.Kind == ledger.KindWithdrawalReversal && p.Amount == 20150
		})).Return(&ledger.Entry{}, true, nil).Once()
		settlementRepo.On("Record", ctx, mock.AnythingOfType("*settlement.ProcessedEvent")).Return(nil).Once()

		outcome, err := svc.HandleEvent(ctx, body, sig)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		poster.AssertExpectations(t)
	})

	t.Run("TransferSucceededSettlesWithdrawal", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		poster := new(MockLedgerPoster)
		withdrawalRepo := new(MockWithdrawalRepository)
		withdrawals := newWithdrawalService(new(MockAccountRepository), withdrawalRepo, poster, new(MockPaymentGateway))
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, poster, withdrawals, webhookSecret)

		req := withdrawal.NewRequest(uuid.New(), 20000, 150, "NGN", "RCP_abc123")
		body, sig := signedBody(fmt.Sprintf(`{
			"event": "transfer.success",
			"data": {"id": 88002, "reference": %q, "transfer_code": "TRF_xyz789"}
		}`, req.TransferRef))

		settlementRepo.On("GetByEventID", ctx, "88002").
			Return(nil, settlement.ErrEventNotFound{EventID: "88002"}).Once()
		withdrawalRepo.On("GetByTransferRef", ctx, req.TransferRef).Return(req, nil).Once()
		withdrawalRepo.On("Resolve", ctx, req.ID, withdrawal.StatusSuccess, "", mock.AnythingOfType("time.Time")).Return(nil).Once()
		settlementRepo.On("Record", ctx, mock.AnythingOfType("*settlement.ProcessedEvent")).Return(nil).Once()

		outcome, err := svc.HandleEvent(ctx, body, sig)

		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		poster.AssertNotCalled(t, "Post")
	})

	t.Run("UnknownEventType", func(t *testing.T) {
		settlementRepo := new(MockSettlementRepository)
		svc := NewSettlementService(testLogger(), fakeTxRunner{}, settlementRepo, new(MockLedgerPoster), nil, webhookSecret)

		body, sig := signedBody(`{"event": "subscription.create", "data": {"id": 1, "reference": "sub_1"}}`)

		_, err := svc.HandleEvent(ctx, body, sig)
		assert.ErrorIs(t, err, settlement.ErrUnknownEvent{})
	})
}
