package models

import "time"

// AuthToken is the persisted half of an issued bearer token. The row id
// doubles as the JWT jti; deleting the row revokes the token.
type AuthToken struct {
	ID        string    `gorm:"primaryKey;size:26"` // ULID
	UserID    uint64    `gorm:"index;not null"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (AuthToken) TableName() string { return "auth_tokens" }
