// The notification worker drains message events published by the API
// server and records a notification intent for recipients who are not
// online. It never pushes anything to chat clients; they keep polling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/whisperchat/whisper-backend/internal/config"
	"github.com/whisperchat/whisper-backend/internal/db"
	"github.com/whisperchat/whisper-backend/internal/models"
	"github.com/whisperchat/whisper-backend/internal/store/rabbitmq"
	"github.com/whisperchat/whisper-backend/internal/store/redisstore"
	"github.com/whisperchat/whisper-backend/pkg/logger"
	"gorm.io/gorm"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connect failed")
	}

	presence := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PresenceTTL)
	defer presence.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbit dial failed")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbit channel failed")
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil); err != nil {
		logger.Fatal().Err(err).Msg("queue declare failed")
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		logger.Fatal().Err(err).Msg("qos failed")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("consume failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("queue", cfg.RabbitQueue).Int("concurrency", concurrency).Msg("worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var ev rabbitmq.MessageEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.MessageID == 0 {
					logger.Warn().Int("worker", workerID).Err(err).Msg("bad message event")
					_ = d.Nack(false, false)
					continue
				}

				if err := handleEvent(ctx, gdb, presence, ev); err != nil {
					logger.Error().Int("worker", workerID).Uint64("message_id", ev.MessageID).
						Err(err).Msg("event handling failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					logger.Warn().Int("worker", workerID).Err(err).Msg("ack failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logger.Warn().Msg("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleEvent(ctx context.Context, gdb *gorm.DB, presence *redisstore.Store, ev rabbitmq.MessageEvent) error {
	online, err := presence.IsOnline(ctx, ev.RecipientID)
	if err != nil {
		return err
	}
	if online {
		// Recipient will pick the message up on the next poll.
		return nil
	}

	var sender models.User
	if err := gdb.WithContext(ctx).First(&sender, ev.SenderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Sender gone, nothing to notify about.
			return nil
		}
		return err
	}

	logger.Info().
		Uint64("message_id", ev.MessageID).
		Uint64("chat_id", ev.ChatID).
		Uint64("recipient_id", ev.RecipientID).
		Str("sender", sender.Username).
		Time("sent_at", ev.SentAt).
		Msg("notification intent")
	return nil
}
