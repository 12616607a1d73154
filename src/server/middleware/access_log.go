package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apimgr/weatherio/src/utils"
)

// SlowRequest is the duration after which a request is logged as a warning
const SlowRequest = time.Second

// AccessLogger writes every request to the access log in Apache combined
// format
func AccessLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		size := int64(c.Writer.Size())
		if size < 0 {
			size = 0
		}

		logger.Access(c.ClientIP(), "", c.Request.Method, path, c.Request.Proto,
			c.Writer.Status(), size, c.Request.Referer(), c.Request.UserAgent())

		// websocket sessions are long-lived by nature
		if duration > SlowRequest && !c.IsWebsocket() {
			logger.Warn("Slow request: %s %s took %v (request %s)", c.Request.Method, c.Request.URL.Path, duration, GetRequestID(c))
		}
	}
}
