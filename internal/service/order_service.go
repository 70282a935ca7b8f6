package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/covu-marketplace-ledger/internal/domain/escrow"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// orderNumberRetries bounds how many fresh numbers CreateOrder tries
// after a collision before giving up
const orderNumberRetries = 3

// OrderServiceImpl implements the order lifecycle on top of escrow
type OrderServiceImpl struct {
	logger        *slog.Logger
	db            TxRunner
	orderRepo     order.Repository
	escrowRepo    escrow.Repository
	escrowManager EscrowManager
	catalog       order.Catalog
}

// NewOrderService creates the order service
func NewOrderService(
	logger *slog.Logger,
	db TxRunner,
	orderRepo order.Repository,
	escrowRepo escrow.Repository,
	escrowManager EscrowManager,
	catalog order.Catalog,
) OrderService {
	return &OrderServiceImpl{
		logger:        logger,
		db:            db,
		orderRepo:     orderRepo,
		escrowRepo:    escrowRepo,
		escrowManager: escrowManager,
		catalog:       catalog,
	}
}

// CreateOrder snapshots the product, creates a PENDING order and holds
// the order total in escrow. Order row and hold commit together, so a
// buyer who cannot cover the total ends up with no order at all.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, buyerAccountID, productID uuid.UUID, deliveryMessage string) (*order.Order, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, order.ErrProductUnavailable{ProductID: productID}
	}
	if product.SellerAccountID == buyerAccountID {
		return nil, ErrNotAllowed
	}

	ord := order.NewOrder(buyerAccountID, product, deliveryMessage)

	// The generated order number can collide with an existing row. The
	// whole transaction rolls back on the unique violation, so retrying
	// with a fresh number is safe.
	for attempt := 0; ; attempt++ {
		err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if err := s.orderRepo.WithTx(tx).Create(ctx, ord); err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}
			if _, err := s.escrowManager.Hold(ctx, tx, ord); err != nil {
				return err
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, order.ErrDuplicateNumber) && attempt < orderNumberRetries {
			s.logger.Warn("Order number collision, regenerating",
				"order_id", ord.ID,
				"order_number", ord.Number,
			)
			ord.Number = order.NewNumber()
			continue
		}
		return nil, err
	}

	s.logger.Info("Order created",
		"order_id", ord.ID,
		"order_number", ord.Number,
		"buyer_account_id", buyerAccountID,
		"total_amount", ord.TotalAmount,
	)
	return ord, nil
}

// GetOrder returns an order visible to one of its participants
func (s *OrderServiceImpl) GetOrder(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error) {
	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.BuyerAccountID != accountID && ord.SellerAccountID != accountID {
		return nil, ErrNotAllowed
	}
	return ord, nil
}

// ListOrders returns the account's orders, most recent first
func (s *OrderServiceImpl) ListOrders(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*order.Order, int64, error) {
	limit, offset := pagination(page, perPage)

	orders, err := s.orderRepo.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Accept moves a PENDING order to ACCEPTED. Seller only.
func (s *OrderServiceImpl) Accept(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, sellerAccountID, orderID, order.StatusPending, order.StatusAccepted)
}

// MarkDelivered moves an ACCEPTED order to DELIVERED. Seller only.
func (s *OrderServiceImpl) MarkDelivered(ctx context.Context, sellerAccountID, orderID uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, sellerAccountID, orderID, order.StatusAccepted, order.StatusDelivered)
}

// transition performs a status-only move with no money involved
func (s *OrderServiceImpl) transition(ctx context.Context, sellerAccountID, orderID uuid.UUID, from, to order.Status) (*order.Order, error) {
	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.SellerAccountID != sellerAccountID {
		return nil, ErrNotAllowed
	}
	if ord.Status != from {
		return nil, order.ErrStateConflict{OrderID: orderID, From: from, To: to}
	}

	now := time.Now()
	if err := s.orderRepo.Transition(ctx, orderID, from, to, now); err != nil {
		return nil, err
	}

	ord.Status = to
	switch to {
	case order.StatusAccepted:
		ord.AcceptedAt = &now
	case order.StatusDelivered:
		ord.DeliveredAt = &now
	}

	s.logger.Info("Order transitioned",
		"order_id", orderID,
		"from", from,
		"to", to,
	)
	return ord, nil
}

// ConfirmReceipt settles a DELIVERED order: the status change and the
// escrow release to the seller commit in one transaction. Buyer only.
func (s *OrderServiceImpl) ConfirmReceipt(ctx context.Context, buyerAccountID, orderID uuid.UUID) (*order.Order, error) {
	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.BuyerAccountID != buyerAccountID {
		return nil, ErrNotAllowed
	}
	if ord.Status != order.StatusDelivered {
		return nil, order.ErrStateConflict{OrderID: orderID, From: order.StatusDelivered, To: order.StatusConfirmed}
	}

	now := time.Now()
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.orderRepo.WithTx(tx).Transition(ctx, orderID, order.StatusDelivered, order.StatusConfirmed, now); err != nil {
			return err
		}
		rec, err := s.escrowRepo.WithTx(tx).GetByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		return s.escrowManager.Release(ctx, tx, rec, ord.Number)
	})
	if err != nil {
		return nil, err
	}

	ord.Status = order.StatusConfirmed
	ord.ConfirmedAt = &now

	s.logger.Info("Order confirmed, escrow released",
		"order_id", orderID,
		"seller_account_id", ord.SellerAccountID,
		"amount", ord.TotalAmount,
	)
	return ord, nil
}

// Cancel cancels the order and refunds the escrow to the buyer in one
// transaction. Buyers may only cancel while the order is still PENDING;
// sellers may cancel any order that has not reached a terminal state.
func (s *OrderServiceImpl) Cancel(ctx context.Context, accountID, orderID uuid.UUID) (*order.Order, error) {
	ord, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var by order.Party
	switch accountID {
	case ord.BuyerAccountID:
		by = order.PartyBuyer
		if ord.Status != order.StatusPending {
			return nil, order.ErrStateConflict{OrderID: orderID, From: order.StatusPending, To: order.StatusCancelled}
		}
	case ord.SellerAccountID:
		by = order.PartySeller
		if !ord.CanTransitionTo(order.StatusCancelled) {
			return nil, order.ErrStateConflict{OrderID: orderID, From: ord.Status, To: order.StatusCancelled}
		}
	default:
		return nil, ErrNotAllowed
	}

	now := time.Now()
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.orderRepo.WithTx(tx).MarkCancelled(ctx, orderID, ord.Status, by, now); err != nil {
			return err
		}
		rec, err := s.escrowRepo.WithTx(tx).GetByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		return s.escrowManager.Refund(ctx, tx, rec, ord.Number)
	})
	if err != nil {
		return nil, err
	}

	ord.Status = order.StatusCancelled
	ord.CancelledBy = by
	ord.CancelledAt = &now

	s.logger.Info("Order cancelled, escrow refunded",
		"order_id", orderID,
		"cancelled_by", by,
		"amount", ord.TotalAmount,
	)
	return ord, nil
}

// pagination converts a 1-based page and page size into limit/offset
func pagination(page, perPage int) (limit, offset int) {
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
