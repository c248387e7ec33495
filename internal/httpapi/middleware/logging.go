package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/pkg/logger"
)

// RequestLogger logs every request with timing.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		var userID uint64
		if id, ok := UserID(c); ok {
			userID = id
		}

		event := logger.Log.Info()
		if status >= 400 {
			event = logger.Log.Warn()
		}
		if status >= 500 {
			event = logger.Log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", rawQuery).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("request_id", c.GetString("requestID")).
			Uint64("user_id", userID).
			Msg("request")
	}
}
