package models

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	AvatarURL    *string   `gorm:"type:varchar(255)" json:"avatar_url"`
	Status       string    `gorm:"type:varchar(16);not null;default:online" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
}

func (User) TableName() string { return "users" }
