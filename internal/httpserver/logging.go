package httpserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an ID (kept from the caller when present)
// and logs one line when it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logx.Log.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("url", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request processed")
	}
}
