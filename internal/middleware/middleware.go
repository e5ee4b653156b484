// Package middleware provides the gin middleware shared by all routes:
// request ids, gateway identity resolution and per-request metrics.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novamart/novamart-commerce-service/internal/metrics"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID carries the gateway-verified user id. Identity
	// resolution itself happens upstream; this service only consumes the
	// result.
	HeaderUserID = "X-User-ID"

	// ContextRequestID is the gin context key for the request id.
	ContextRequestID = "request_id"
	// ContextUserID is the gin context key for the authenticated user id.
	ContextUserID = "user_id"
)

// RequestID assigns a correlation id to every request, reusing the
// inbound header when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// Identity requires the gateway-verified user id header and exposes it to
// handlers. Requests without it are rejected before reaching a handler.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Identity.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Metrics records request counts and latency per route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPLatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}
