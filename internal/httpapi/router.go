package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/internal/config"
	"github.com/whisperchat/whisper-backend/internal/httpapi/handlers"
	"github.com/whisperchat/whisper-backend/internal/httpapi/middleware"
	"github.com/whisperchat/whisper-backend/internal/store/rabbitmq"
	"github.com/whisperchat/whisper-backend/internal/store/redisstore"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, presence *redisstore.Store, events *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())

	r.NoRoute(func(c *gin.Context) {
		common.Error(c, http.StatusNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Error(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	h := handlers.NewHandler(db, cfg, presence, events)

	r.GET("/health", h.Health)

	r.POST("/auth", h.Auth)
	r.GET("/search", h.SearchUsers)

	authed := r.Group("/")
	authed.Use(middleware.Identity(h.Tokens))
	authed.GET("/chats", h.GetChats)
	authed.POST("/chats", h.PostChats)
	authed.POST("/logout", h.Logout)

	return r
}
