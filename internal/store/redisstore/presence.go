package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps a TTL'd live view of user presence. The relational status
// column is still the source of truth; these keys only say "seen
// recently". A nil *Store is valid and turns every method into a no-op,
// so the core works without redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb, ttl: ttl}
}

func presenceKey(userID uint64) string {
	return fmt.Sprintf("presence:%d", userID)
}

func (s *Store) MarkOnline(ctx context.Context, userID uint64) error {
	if s == nil {
		return nil
	}
	return s.rdb.Set(ctx, presenceKey(userID), "online", s.ttl).Err()
}

func (s *Store) MarkOffline(ctx context.Context, userID uint64) error {
	if s == nil {
		return nil
	}
	return s.rdb.Del(ctx, presenceKey(userID)).Err()
}

func (s *Store) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	if s == nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineSet reports which of the given users are currently online in a
// single round trip. A nil map means presence is not available.
func (s *Store) OnlineSet(ctx context.Context, userIDs []uint64) (map[uint64]bool, error) {
	if s == nil || len(userIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = presenceKey(id)
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	online := make(map[uint64]bool, len(userIDs))
	for i, v := range vals {
		online[userIDs[i]] = v != nil
	}
	return online, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}
