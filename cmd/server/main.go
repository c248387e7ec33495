package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/chat"
	"github.com/whisperchat/whisper-backend/internal/config"
	"github.com/whisperchat/whisper-backend/internal/db"
	"github.com/whisperchat/whisper-backend/internal/httpapi"
	"github.com/whisperchat/whisper-backend/internal/models"
	"github.com/whisperchat/whisper-backend/internal/store/rabbitmq"
	"github.com/whisperchat/whisper-backend/internal/store/redisstore"
	"github.com/whisperchat/whisper-backend/pkg/logger"
)

func main() {
	cfg := config.Load()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info().Str("environment", env).Msg("starting whisper backend")

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connect failed")
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.AuthToken{},
		&chat.Chat{},
		&chat.Message{},
	); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	presence := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PresenceTTL)
	defer presence.Close()

	events, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		// Messages still land in the store; only notifications go dark.
		logger.Warn().Err(err).Msg("rabbitmq unavailable, message events disabled")
		events = nil
	} else {
		defer events.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, presence, events)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
