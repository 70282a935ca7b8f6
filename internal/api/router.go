package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/covu-marketplace-ledger/internal/api/handler"
	"github.com/covu-marketplace-ledger/internal/api/middleware"
	"github.com/covu-marketplace-ledger/internal/metrics"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	orderHandler *handler.OrderHandler,
	webhookHandler *handler.WebhookHandler,
) {
	// CorrelationID runs first so the request logger and recovery
	// handler both see the id.
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Middleware())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet creation is unauthenticated; it is called by the user
		// service during signup, before the wallet id exists.
		v1.POST("/wallets", walletHandler.Create)

		// Wallet operations act on the caller's own wallet
		wallet := v1.Group("/wallet", middleware.Identity())
		{
			wallet.GET("", walletHandler.Get)
			wallet.POST("/fund", walletHandler.Deposit)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.GET("/transactions", walletHandler.GetTransactions)
			wallet.GET("/statement", walletHandler.GetStatement)
			wallet.GET("/withdrawals", walletHandler.ListWithdrawals)
			wallet.GET("/withdrawals/:id", walletHandler.GetWithdrawal)
		}

		// Order operations
		orders := v1.Group("/orders", middleware.Identity())
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/accept", orderHandler.Accept)
			orders.POST("/:id/deliver", orderHandler.MarkDelivered)
			orders.POST("/:id/confirm", orderHandler.ConfirmReceipt)
			orders.POST("/:id/cancel", orderHandler.Cancel)
		}

		// Settlement webhooks are authenticated by signature, not by the
		// identity header. The processor sends charge and transfer events
		// to separate URLs; both carry the same envelope.
		v1.POST("/wallet/webhook", webhookHandler.HandlePaystack)
		v1.POST("/wallet/transfer-webhook", webhookHandler.HandlePaystack)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", metrics.Handler())
}
