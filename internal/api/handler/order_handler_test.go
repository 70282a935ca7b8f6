package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/covu-marketplace-ledger/internal/api/middleware"
	"github.com/covu-marketplace-ledger/internal/domain/account"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/covu-marketplace-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrderRouter(orderService *MockOrderService) *gin.Engine {
	handler := NewOrderHandler(testLogger(), orderService)
	router := setupTestRouter()

	orders := router.Group("/orders", middleware.Identity())
	orders.POST("", handler.Create)
	orders.GET("/:id", handler.Get)
	orders.POST("/:id/accept", handler.Accept)
	orders.POST("/:id/deliver", handler.MarkDelivered)
	orders.POST("/:id/confirm", handler.ConfirmReceipt)
	orders.POST("/:id/cancel", handler.Cancel)
	return router
}

func testProductOrder(buyerID uuid.UUID) *order.Order {
	return order.NewOrder(buyerID, &order.Product{
		ID:              uuid.New(),
		SellerAccountID: uuid.New(),
		Name:            "Mechanical Keyboard",
		Price:           45000,
		DeliveryFee:     1500,
		Currency:        "NGN",
		Available:       true,
	}, "leave at the gate")
}

func TestOrderHandler_Create(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	body, _ := json.Marshal(CreateOrderRequest{ProductID: productID.String(), DeliveryMessage: "leave at the gate"})

	t.Run("Created", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		ord := testProductOrder(buyerID)
		orderService.On("CreateOrder", mock.Anything, buyerID, productID, "leave at the gate").
			Return(ord, nil).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeResponse(t, rr)
		data, _ := json.Marshal(resp.Data)
		var out OrderResponse
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, int64(46500), out.TotalAmount)
		assert.Equal(t, "PENDING", out.Status)
		assert.Equal(t, "HELD", out.EscrowStatus)
	})

	t.Run("UnavailableProduct", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		orderService.On("CreateOrder", mock.Anything, buyerID, productID, "leave at the gate").
			Return(nil, order.ErrProductUnavailable{ProductID: productID}).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "PRODUCT_UNAVAILABLE", resp.Error.Code)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		orderService.On("CreateOrder", mock.Anything, buyerID, productID, "leave at the gate").
			Return(nil, account.ErrInsufficientFunds).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	})

	t.Run("OwnProduct", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		orderService.On("CreateOrder", mock.Anything, buyerID, productID, "leave at the gate").
			Return(nil, service.ErrNotAllowed).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "OWN_PRODUCT", resp.Error.Code)
	})
}

func TestOrderHandler_Transitions(t *testing.T) {
	t.Run("AcceptByState", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		sellerID := uuid.New()
		ord := testProductOrder(uuid.New())
		ord.Status = order.StatusAccepted
		orderService.On("Accept", mock.Anything, sellerID, ord.ID).Return(ord, nil).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+ord.ID.String()+"/accept", nil)
		rr := serveAs(router, sellerID, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data, _ := json.Marshal(resp.Data)
		var out OrderResponse
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "HELD", out.EscrowStatus)
	})

	t.Run("ConfirmReportsReleasedEscrow", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		buyerID := uuid.New()
		ord := testProductOrder(buyerID)
		ord.Status = order.StatusConfirmed
		orderService.On("ConfirmReceipt", mock.Anything, buyerID, ord.ID).Return(ord, nil).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+ord.ID.String()+"/confirm", nil)
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data, _ := json.Marshal(resp.Data)
		var out OrderResponse
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "RELEASED", out.EscrowStatus)
	})

	t.Run("CancelReportsRefundedEscrow", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		buyerID := uuid.New()
		ord := testProductOrder(buyerID)
		ord.Status = order.StatusCancelled
		ord.CancelledBy = order.PartyBuyer
		orderService.On("Cancel", mock.Anything, buyerID, ord.ID).Return(ord, nil).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+ord.ID.String()+"/cancel", nil)
		rr := serveAs(router, buyerID, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		data, _ := json.Marshal(resp.Data)
		var out OrderResponse
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "REFUNDED", out.EscrowStatus)
	})

	t.Run("StateConflictIs409", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		sellerID := uuid.New()
		orderID := uuid.New()
		orderService.On("Accept", mock.Anything, sellerID, orderID).
			Return(nil, order.ErrStateConflict{OrderID: orderID, From: order.StatusPending, To: order.StatusAccepted}).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/accept", nil)
		rr := serveAs(router, sellerID, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("StrangerIsForbidden", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		callerID := uuid.New()
		orderID := uuid.New()
		orderService.On("ConfirmReceipt", mock.Anything, callerID, orderID).
			Return(nil, service.ErrNotAllowed).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/confirm", nil)
		rr := serveAs(router, callerID, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("UnknownOrderIs404", func(t *testing.T) {
		orderService := new(MockOrderService)
		router := newOrderRouter(orderService)

		callerID := uuid.New()
		orderID := uuid.New()
		orderService.On("Cancel", mock.Anything, callerID, orderID).
			Return(nil, order.ErrOrderNotFound{OrderID: orderID}).Once()

		req, _ := http.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil)
		rr := serveAs(router, callerID, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MalformedOrderIDIsBadRequest", func(t *testing.T) {
		router := newOrderRouter(new(MockOrderService))

		req, _ := http.NewRequest(http.MethodPost, "/orders/not-a-uuid/deliver", nil)
		rr := serveAs(router, uuid.New(), req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
