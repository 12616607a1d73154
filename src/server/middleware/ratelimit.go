package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
)

// DefaultSearchLimit is the per-IP budget of the search API per minute
const DefaultSearchLimit = 60

// RateLimit limits requests per client IP to limit per window. It guards
// the endpoints that spend upstream API quota. onLimit answers a rejected
// request; nil writes a plain JSON error.
func RateLimit(limit int, window time.Duration, onLimit gin.HandlerFunc) gin.HandlerFunc {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if onLimit == nil {
		onLimit = limited
	}

	// the rejection is answered by onLimit so it can use the caller's envelope
	limiter := httprate.NewRateLimiter(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(http.ResponseWriter, *http.Request) {}),
	)

	return func(c *gin.Context) {
		allowed := false
		limiter.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			allowed = true
		})).ServeHTTP(c.Writer, c.Request)

		if !allowed {
			onLimit(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

func limited(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":  "Too many requests. Please try again later.",
		"code":   "RATE_LIMITED",
		"status": http.StatusTooManyRequests,
	})
}
