package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/auth"
	"github.com/whisperchat/whisper-backend/internal/common"
)

const UserIDKey = "userID"

// Identity resolves the acting user for chat endpoints. A verified
// X-Auth-Token wins; the raw X-User-Id header is still accepted for
// clients that predate token verification.
func Identity(tokens *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := strings.TrimSpace(c.GetHeader("X-Auth-Token")); tok != "" {
			uid, err := tokens.Verify(c.Request.Context(), tok)
			if err != nil {
				common.Error(c, http.StatusUnauthorized, "Invalid or expired token")
				c.Abort()
				return
			}
			c.Set(UserIDKey, uid)
			c.Next()
			return
		}

		raw := c.GetHeader("X-User-Id")
		uid, err := strconv.ParseUint(raw, 10, 64)
		if raw == "" || err != nil {
			common.Error(c, http.StatusUnauthorized, "User ID required in X-User-Id header")
			c.Abort()
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the id Identity stored on the context.
func UserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
