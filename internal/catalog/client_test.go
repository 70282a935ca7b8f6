package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/covu-marketplace-ledger/internal/config"
	"github.com/covu-marketplace-ledger/internal/domain/order"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewClient(logger, &config.CatalogConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
}

func TestClient_GetProduct(t *testing.T) {
	productID := uuid.MustParse("3e9a7c2e-0d6f-4b5a-9d1e-8f7a6b5c4d3e")
	sellerID := uuid.MustParse("a1b2c3d4-e5f6-4708-89ab-cdef01234567")

	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/internal/v1/products/"+productID.String(), r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "` + productID.String() + `",
				"seller_account_id": "` + sellerID.String() + `",
				"name": "Mechanical Keyboard",
				"price": 45000,
				"delivery_fee": 1500,
				"currency": "NGN",
				"available": true
			}`))
		})

		product, err := client.GetProduct(context.Background(), productID)

		require.NoError(t, err)
		assert.Equal(t, productID, product.ID)
		assert.Equal(t, sellerID, product.SellerAccountID)
		assert.Equal(t, "Mechanical Keyboard", product.Name)
		assert.Equal(t, int64(45000), product.Price)
		assert.Equal(t, int64(1500), product.DeliveryFee)
		assert.True(t, product.Available)
	})

	t.Run("NotFound", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.GetProduct(context.Background(), productID)
		assert.ErrorIs(t, err, order.ErrProductNotFound{ProductID: productID})
	})

	t.Run("ServerError", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.GetProduct(context.Background(), productID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, order.ErrProductNotFound{})
	})
}
