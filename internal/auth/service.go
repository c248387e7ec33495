package auth

import (
	"context"
	"errors"
	"time"

	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Service issues and verifies bearer tokens. Each issued token has a
// backing row in auth_tokens keyed by the JWT jti, so a token stays
// valid only while its row exists.
type Service struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), ttl: ttl}
}

func (s *Service) Issue(ctx context.Context, userID uint64) (string, error) {
	jti, err := common.NewULID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	row := models.AuthToken{
		ID:        jti,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}

	return signToken(userID, jti, s.ttl, s.secret)
}

func (s *Service) Verify(ctx context.Context, tokenString string) (uint64, error) {
	claims, err := parseToken(tokenString, s.secret)
	if err != nil {
		return 0, ErrInvalidToken
	}

	var row models.AuthToken
	err = s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", claims.ID, claims.UserID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidToken
		}
		return 0, err
	}
	if time.Now().After(row.ExpiresAt) {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// Revoke deletes the rows backing a user's tokens, invalidating them all.
func (s *Service) Revoke(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.AuthToken{}).Error
}
