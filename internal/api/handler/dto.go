package handler

import (
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/domain/withdrawal"
)

// CreateWalletRequest represents a request to open a wallet
type CreateWalletRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,uuid"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// DepositRequest represents a request to start a wallet deposit
type DepositRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Email  string `json:"email" binding:"required,email"`
}

// WithdrawRequest represents a request to pay out to a bank account
type WithdrawRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	BankAccount string `json:"bank_account" binding:"required"`
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	ProductID       string `json:"product_id" binding:"required,uuid"`
	DeliveryMessage string `json:"delivery_message" binding:"max=500"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Balance   int64  `json:"balance"`
	Currency  string `json:"currency"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DepositResponse carries the processor authorization for a started
// deposit
type DepositResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Kind          string `json:"kind"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Currency      string `json:"currency"`
	ExternalRef   string `json:"external_ref,omitempty"`
	RelatedID     string `json:"related_id,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	BuyerAccountID  string `json:"buyer_account_id"`
	SellerAccountID string `json:"seller_account_id"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	ProductPrice    int64  `json:"product_price"`
	DeliveryFee     int64  `json:"delivery_fee"`
	TotalAmount     int64  `json:"total_amount"`
	DeliveryMessage string `json:"delivery_message,omitempty"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	EscrowStatus    string `json:"escrow_status"`
	CancelledBy     string `json:"cancelled_by,omitempty"`
	CreatedAt       string `json:"created_at"`
	AcceptedAt      string `json:"accepted_at,omitempty"`
	DeliveredAt     string `json:"delivered_at,omitempty"`
	ConfirmedAt     string `json:"confirmed_at,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
}

// WithdrawalResponse represents a withdrawal request in API responses
type WithdrawalResponse struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	TotalDebit    int64  `json:"total_debit"`
	Currency      string `json:"currency"`
	BankAccount   string `json:"bank_account"`
	TransferRef   string `json:"transfer_ref"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	ResolvedAt    string `json:"resolved_at,omitempty"`
}

func mapWalletToResponse(acct *account.Account) WalletResponse {
	return WalletResponse{
		ID:        acct.ID.String(),
		OwnerID:   acct.OwnerID.String(),
		Balance:   acct.Balance,
		Currency:  acct.Currency,
		Active:    acct.Active,
		CreatedAt: acct.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acct.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:            entry.ID.String(),
		AccountID:     entry.AccountID.String(),
		Kind:          string(entry.Kind),
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Currency:      entry.Currency,
		ExternalRef:   entry.ExternalRef,
		Description:   entry.Description,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.RelatedID != nil {
		resp.RelatedID = entry.RelatedID.String()
	}
	return resp
}

func mapEntriesToResponse(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, mapEntryToResponse(entry))
	}
	return out
}

func mapOrderToResponse(ord *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:              ord.ID.String(),
		Number:          ord.Number,
		BuyerAccountID:  ord.BuyerAccountID.String(),
		SellerAccountID: ord.SellerAccountID.String(),
		ProductID:       ord.ProductID.String(),
		ProductName:     ord.ProductName,
		ProductPrice:    ord.ProductPrice,
		DeliveryFee:     ord.DeliveryFee,
		TotalAmount:     ord.TotalAmount,
		DeliveryMessage: ord.DeliveryMessage,
		Currency:        ord.Currency,
		Status:          string(ord.Status),
		EscrowStatus:    string(escrowStatusFor(ord.Status)),
		CancelledBy:     string(ord.CancelledBy),
		CreatedAt:       ord.CreatedAt.Format(time.RFC3339),
	}
	if ord.AcceptedAt != nil {
		resp.AcceptedAt = ord.AcceptedAt.Format(time.RFC3339)
	}
	if ord.DeliveredAt != nil {
		resp.DeliveredAt = ord.DeliveredAt.Format(time.RFC3339)
	}
	if ord.ConfirmedAt != nil {
		resp.ConfirmedAt = ord.ConfirmedAt.Format(time.RFC3339)
	}
	if ord.CancelledAt != nil {
		resp.CancelledAt = ord.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

// escrowStatusFor derives the escrow state from the order status. The
// escrow row and the order row only ever change in the same
// transaction, so the mapping is exact.
func escrowStatusFor(status order.Status) escrow.Status {
	switch status {
	case order.StatusConfirmed:
		return escrow.StatusReleased
	case order.StatusCancelled:
		return escrow.StatusRefunded
	default:
		return escrow.StatusHeld
	}
}

func mapOrdersToResponse(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, ord := range orders {
		out = append(out, mapOrderToResponse(ord))
	}
	return out
}

func mapWithdrawalToResponse(req *withdrawal.Request) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:            req.ID.String(),
		AccountID:     req.AccountID.String(),
		Amount:        req.Amount,
		Fee:           req.Fee,
		TotalDebit:    req.TotalDebit(),
		Currency:      req.Currency,
		BankAccount:   req.BankAccount,
		TransferRef:   req.TransferRef,
		Status:        string(req.Status),
		FailureReason: req.FailureReason,
		CreatedAt:     req.CreatedAt.Format(time.RFC3339),
	}
	if req.ResolvedAt != nil {
		resp.ResolvedAt = req.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}

func mapWithdrawalsToResponse(requests []*withdrawal.Request) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, mapWithdrawalToResponse(req))
	}
	return out
}
