package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/covu-marketplace-ledger/internal/api/middleware"
	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
	"github.com/covu-marketplace-ledger/internal/paystack"
	"github.com/covu-marketplace-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService     service.WalletService
	withdrawalService service.WithdrawalService
	logger            *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService, withdrawalService service.WithdrawalService) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// Create opens a wallet for an owner
func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		RespondBadRequest(c, "Invalid owner ID")
		return
	}

	acct, err := h.walletService.CreateWallet(c.Request.Context(), ownerID, req.Currency)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateOwner{}) {
			RespondConflict(c, "Owner already has a wallet")
			return
		}
		h.logger.Error("Failed to create wallet", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapWalletToResponse(acct))
}

// Get returns the caller's wallet with its current balance
func (h *WalletHandler) Get(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	acct, err := h.walletService.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get wallet", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToResponse(acct))
}

// Deposit starts an inbound charge; the wallet is credited when the
// processor's webhook confirms the payment
func (h *WalletHandler) Deposit(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	auth, err := h.walletService.InitiateDeposit(c.Request.Context(), accountID, req.Amount, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Wallet not found")
		case errors.Is(err, paystack.ErrUnavailable):
			RespondServiceUnavailable(c, "Payment processor is unavailable, try again later")
		case errors.Is(err, paystack.RejectionError{}):
			RespondUnprocessable(c, "DEPOSIT_REJECTED", "Payment processor rejected the deposit")
		default:
			h.logger.Error("Failed to initiate deposit", "account_id", accountID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, DepositResponse{
		AuthorizationURL: auth.AuthorizationURL,
		AccessCode:       auth.AccessCode,
		Reference:        auth.Reference,
	})
}

// GetTransactions lists the caller's ledger entries from the primary
// store
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	filter, err := parseEntryFilter(c)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	page, perPage := parsePagination(c)

	entries, total, err := h.walletService.GetTransactions(c.Request.Context(), accountID, filter, page, perPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get transactions", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, 200, mapEntriesToResponse(entries), page, perPage, int(total))
}

// GetStatement lists the caller's entries from the history archive
func (h *WalletHandler) GetStatement(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	since, until, err := parseDateRange(c)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	page, perPage := parsePagination(c)

	entries, total, err := h.walletService.GetStatement(c.Request.Context(), accountID, since, until, page, perPage)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get statement", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, 200, mapEntriesToResponse(entries), page, perPage, int(total))
}

// Withdraw debits the wallet and starts an outbound transfer
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), accountID, req.Amount, req.BankAccount)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrBelowMinimum):
			RespondUnprocessable(c, "BELOW_MINIMUM", err.Error())
		case errors.Is(err, account.ErrInsufficientFunds):
			RespondPaymentRequired(c, "Balance cannot cover amount plus fee")
		case errors.Is(err, account.ErrAccountFrozen):
			RespondForbidden(c, "Wallet is frozen")
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Wallet not found")
		case errors.Is(err, paystack.RejectionError{}):
			RespondUnprocessable(c, "TRANSFER_REJECTED", "Payment processor rejected the transfer; the debit was reversed")
		case errors.Is(err, paystack.ErrUnavailable):
			RespondServiceUnavailable(c, "Payment processor is unavailable; the request stays pending")
		default:
			h.logger.Error("Failed to request withdrawal", "account_id", accountID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondAccepted(c, mapWithdrawalToResponse(request))
}

// ListWithdrawals lists the caller's withdrawal requests
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}
	page, perPage := parsePagination(c)

	requests, total, err := h.walletService.GetWithdrawals(c.Request.Context(), accountID, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list withdrawals", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, 200, mapWithdrawalsToResponse(requests), page, perPage, int(total))
}

// GetWithdrawal returns one of the caller's withdrawal requests
func (h *WalletHandler) GetWithdrawal(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid withdrawal ID")
		return
	}

	request, err := h.withdrawalService.GetWithdrawal(c.Request.Context(), accountID, requestID)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrRequestNotFound{}):
			RespondNotFound(c, "Withdrawal not found")
		case errors.Is(err, service.ErrNotAllowed):
			RespondForbidden(c, "")
		default:
			h.logger.Error("Failed to get withdrawal", "request_id", requestID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapWithdrawalToResponse(request))
}

// parsePagination reads page and per_page query parameters with defaults
func parsePagination(c *gin.Context) (page, perPage int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// parseEntryFilter reads the optional kind/since/until query parameters
func parseEntryFilter(c *gin.Context) (ledger.Filter, error) {
	var filter ledger.Filter

	if kind := c.Query("kind"); kind != "" {
		k := ledger.Kind(kind)
		if !k.Valid() {
			return filter, errors.New("unknown entry kind: " + kind)
		}
		filter.Kind = k
	}

	since, until, err := parseDateRange(c)
	if err != nil {
		return filter, err
	}
	filter.Since = since
	filter.Until = until
	return filter, nil
}

// parseDateRange reads optional RFC 3339 since/until query parameters
func parseDateRange(c *gin.Context) (since, until time.Time, err error) {
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid since timestamp, want RFC 3339")
		}
	}
	if raw := c.Query("until"); raw != "" {
		until, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid until timestamp, want RFC 3339")
		}
	}
	return since, until, nil
}
