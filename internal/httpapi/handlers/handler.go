package handlers

import (
	"github.com/whisperchat/whisper-backend/internal/auth"
	"github.com/whisperchat/whisper-backend/internal/chat"
	"github.com/whisperchat/whisper-backend/internal/config"
	"github.com/whisperchat/whisper-backend/internal/store/rabbitmq"
	"github.com/whisperchat/whisper-backend/internal/store/redisstore"
	"gorm.io/gorm"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Tokens   *auth.Service
	ChatSvc  *chat.Service
	Presence *redisstore.Store
	Events   *rabbitmq.Publisher
}

// NewHandler wires the services. Presence and Events may be nil; the
// handlers then skip the overlay and the event publish.
func NewHandler(db *gorm.DB, cfg config.Config, presence *redisstore.Store, events *rabbitmq.Publisher) *Handler {
	repo := chat.NewRepo(db)
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Tokens:   auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL),
		ChatSvc:  chat.NewService(repo),
		Presence: presence,
		Events:   events,
	}
}
