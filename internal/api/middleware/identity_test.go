package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func() (*gin.Engine, *uuid.UUID) {
		router := gin.New()
		router.Use(Identity())
		var captured uuid.UUID
		router.GET("/test", func(c *gin.Context) {
			id, ok := GetAccountID(c)
			require.True(t, ok)
			captured = id
			c.Status(http.StatusOK)
		})
		return router, &captured
	}

	t.Run("SetsAccountIDFromHeader", func(t *testing.T) {
		router, captured := newRouter()

		accountID := uuid.New()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AccountIDHeader, accountID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, accountID, *captured)
	})

	t.Run("MissingHeaderIsRejected", func(t *testing.T) {
		router, _ := newRouter()

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
	})

	t.Run("MalformedHeaderIsRejected", func(t *testing.T) {
		router, _ := newRouter()

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AccountIDHeader, "not-a-uuid")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("GetAccountIDWithoutMiddlewareReportsMissing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		_, ok := GetAccountID(c)
		assert.False(t, ok)
	})
}
