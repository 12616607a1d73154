package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key holding the request ID
	RequestIDKey = "request_id"

	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
	// Cloudflare
	HeaderCFRay = "CF-Ray"
)

// RequestID reuses an upstream request ID or generates a UUID v4, stores it
// in the context and echoes it in X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := extractRequestID(c)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(HeaderXRequestID, requestID)
		c.Next()
	}
}

// extractRequestID checks the known request ID headers in priority order
func extractRequestID(c *gin.Context) string {
	for _, header := range []string{HeaderXRequestID, HeaderXCorrelationID, HeaderCFRay} {
		if id := c.GetHeader(header); id != "" {
			return id
		}
	}
	return ""
}

// GetRequestID retrieves the request ID from the context
// Returns empty string if not found
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}
