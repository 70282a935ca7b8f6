// Package catalog is an HTTP client for the product catalog service.
// The catalog is owned by another team; orders only need a point-in-time
// product snapshot at creation, so this client stays read-only.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/covu-marketplace-ledger/internal/config"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/google/uuid"
)

// Client resolves products over the catalog service's internal REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

var _ order.Catalog = (*Client)(nil)

// NewClient creates a catalog client from configuration
func NewClient(logger *slog.Logger, cfg *config.CatalogConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}

// productPayload is the catalog service's product representation
type productPayload struct {
	ID              uuid.UUID `json:"id"`
	SellerAccountID uuid.UUID `json:"seller_account_id"`
	Name            string    `json:"name"`
	Price           int64     `json:"price"`
	DeliveryFee     int64     `json:"delivery_fee"`
	Currency        string    `json:"currency"`
	Available       bool      `json:"available"`
}

// GetProduct fetches one product by id
func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*order.Product, error) {
	url := fmt.Sprintf("%s/internal/v1/products/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Catalog request failed", "product_id", id, "error", err)
		return nil, fmt.Errorf("catalog unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, order.ErrProductNotFound{ProductID: id}
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("Catalog returned unexpected status", "product_id", id, "status", resp.StatusCode)
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return &order.Product{
		ID:              payload.ID,
		SellerAccountID: payload.SellerAccountID,
		Name:            payload.Name,
		Price:           payload.Price,
		DeliveryFee:     payload.DeliveryFee,
		Currency:        payload.Currency,
		Available:       payload.Available,
	}, nil
}
