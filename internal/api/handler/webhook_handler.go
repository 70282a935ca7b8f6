package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/covu-marketplace-ledger/internal/domain/settlement"
	"github.com/covu-marketplace-ledger/internal/service"
	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the processor's HMAC of the raw request body
const SignatureHeader = "X-Paystack-Signature"

// WebhookHandler receives settlement notifications from the payment
// processor
type WebhookHandler struct {
	settlementService service.SettlementService
	logger            *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, settlementService service.SettlementService) *WebhookHandler {
	return &WebhookHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

// HandlePaystack verifies and applies one webhook delivery. The raw
// body is read before any decoding because the signature covers the
// exact bytes sent. Verified events always get a 200 so the processor
// stops retrying; a non-2xx is reserved for failures on our side that a
// retry can fix.
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		RespondBadRequest(c, "Unreadable request body")
		return
	}

	outcome, err := h.settlementService.HandleEvent(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrSignatureInvalid):
			h.logger.Warn("Webhook signature verification failed", "client_ip", c.ClientIP())
			RespondUnauthorized(c, "Invalid signature")
		case errors.Is(err, settlement.ErrUnknownEvent{}):
			// Unknown but authentic event types are acknowledged so the
			// processor does not retry them forever.
			RespondOK(c, gin.H{"status": "ignored"})
		case errors.Is(err, settlement.ErrMalformedEvent{}):
			// Authentic but undecodable payloads are acknowledged too; a
			// redelivery of the same bytes cannot succeed.
			h.logger.Warn("Ignoring malformed settlement payload", "error", err)
			RespondOK(c, gin.H{"status": "ignored"})
		default:
			h.logger.Error("Failed to process settlement event", "error", err)
			RespondWithError(c, http.StatusInternalServerError, "SETTLEMENT_FAILED", "Event processing failed, retry expected")
		}
		return
	}

	RespondOK(c, gin.H{"status": "ok", "outcome": outcome})
}
