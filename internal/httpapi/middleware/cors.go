package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows any origin; the frontend authenticates with headers, not
// cookies, so credentials stay off.
func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:              []string{"*"},
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "X-Auth-Token", "X-User-Id"},
		MaxAge:                    24 * time.Hour,
		OptionsResponseStatusCode: 200,
	}
	return cors.New(cfg)
}
