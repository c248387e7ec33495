package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/pkg/logger"
)

// Recovery converts panics into the standard error body instead of a
// dropped connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("recovered from panic")
				common.Error(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
