package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/covu-marketplace-ledger/internal/api/middleware"
	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(logger *slog.Logger, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Create places an order and holds its total in escrow
func (h *OrderHandler) Create(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		RespondBadRequest(c, "Invalid product ID")
		return
	}

	ord, err := h.orderService.CreateOrder(c.Request.Context(), accountID, productID, req.DeliveryMessage)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrProductNotFound{}):
			RespondNotFound(c, "Product not found")
		case errors.Is(err, order.ErrProductUnavailable{}):
			RespondUnprocessable(c, "PRODUCT_UNAVAILABLE", "Product is not available")
		case errors.Is(err, account.ErrInsufficientFunds):
			RespondPaymentRequired(c, "Balance cannot cover the order total")
		case errors.Is(err, account.ErrAccountFrozen):
			RespondForbidden(c, "Wallet is frozen")
		case errors.Is(err, service.ErrNotAllowed):
			RespondUnprocessable(c, "OWN_PRODUCT", "Cannot order your own product")
		default:
			h.logger.Error("Failed to create order", "account_id", accountID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapOrderToResponse(ord))
}

// Get returns an order visible to one of its participants
func (h *OrderHandler) Get(c *gin.Context) {
	h.respondFromLookup(c, h.orderService.GetOrder)
}

// List returns the caller's orders
func (h *OrderHandler) List(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}
	page, perPage := parsePagination(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), accountID, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list orders", "account_id", accountID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, 200, mapOrdersToResponse(orders), page, perPage, int(total))
}

// Accept marks a pending order accepted by the seller
func (h *OrderHandler) Accept(c *gin.Context) {
	h.respondFromLookup(c, h.orderService.Accept)
}

// MarkDelivered marks an accepted order delivered by the seller
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.respondFromLookup(c, h.orderService.MarkDelivered)
}

// ConfirmReceipt settles a delivered order, releasing escrow to the
// seller
func (h *OrderHandler) ConfirmReceipt(c *gin.Context) {
	h.respondFromLookup(c, h.orderService.ConfirmReceipt)
}

// Cancel cancels an order and refunds the buyer
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.respondFromLookup(c, h.orderService.Cancel)
}

// respondFromLookup runs an (accountID, orderID) service call and maps
// its outcome onto the shared status-code scheme
func (h *OrderHandler) respondFromLookup(c *gin.Context, op func(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error)) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid order ID")
		return
	}

	ord, err := op(c.Request.Context(), accountID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound{}):
			RespondNotFound(c, "Order not found")
		case errors.Is(err, order.ErrStateConflict{}):
			RespondConflict(c, err.Error())
		case errors.Is(err, service.ErrNotAllowed):
			RespondForbidden(c, "")
		default:
			h.logger.Error("Order operation failed", "order_id", orderID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapOrderToResponse(ord))
}
