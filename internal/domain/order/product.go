package order

import (
	"context"

	"github.com/google/uuid"
)

// Product is the catalog snapshot an order is built from
type Product struct {
	ID              uuid.UUID
	SellerAccountID uuid.UUID
	Name            string
	Price           int64
	DeliveryFee     int64
	Currency        string
	Available       bool
}

// Catalog resolves products at order creation. The catalog itself is
// owned by another service; orders only need a point-in-time snapshot.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

// ErrProductNotFound indicates the product does not exist in the catalog
type ErrProductNotFound struct {
	ProductID uuid.UUID
}

func (e ErrProductNotFound) Error() string {
	return "product not found: " + e.ProductID.String()
}

// Is implements the errors.Is interface for ErrProductNotFound
func (e ErrProductNotFound) Is(target error) bool {
	t, ok := target.(ErrProductNotFound)
	if !ok {
		return false
	}
	if t.ProductID == uuid.Nil {
		return true
	}
	return e.ProductID == t.ProductID
}

// ErrProductUnavailable indicates the product cannot be ordered
type ErrProductUnavailable struct {
	ProductID uuid.UUID
}

func (e ErrProductUnavailable) Error() string {
	return "product unavailable: " + e.ProductID.String()
}

// Is implements the errors.Is interface for ErrProductUnavailable
func (e ErrProductUnavailable) Is(target error) bool {
	t, ok := target.(ErrProductUnavailable)
	if !ok {
		return false
	}
	if t.ProductID == uuid.Nil {
		return true
	}
	return e.ProductID == t.ProductID
}
