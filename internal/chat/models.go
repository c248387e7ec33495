package chat

import "time"

// Chat is one conversation between exactly two users. The pair is stored
// canonically with user1_id < user2_id so an unordered pair maps to a
// single row; the unique index backs that up.
type Chat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID   uint64    `gorm:"not null;index:uniq_chat_pair,unique,priority:1" json:"user1_id"`
	User2ID   uint64    `gorm:"not null;index:uniq_chat_pair,unique,priority:2" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Chat) TableName() string { return "chats" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    uint64    `gorm:"index;not null" json:"chat_id"`
	SenderID  uint64    `gorm:"index;not null" json:"sender_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// Summary is one row of a user's chat list: the counterpart plus the
// latest message and how many of the counterpart's messages are unread.
type Summary struct {
	ChatID          uint64     `json:"chat_id"`
	OtherUserID     uint64     `json:"other_user_id"`
	OtherUsername   string     `json:"other_username"`
	OtherAvatar     *string    `json:"other_avatar"`
	OtherStatus     string     `json:"other_status"`
	LastMessage     *string    `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time"`
	UnreadCount     int64      `json:"unread_count"`
}

// MessageView is a message joined with its sender's username.
type MessageView struct {
	ID             uint64    `json:"id"`
	Text           string    `json:"text"`
	SenderID       uint64    `json:"sender_id"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	SenderUsername string    `json:"sender_username"`
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID uint64) uint64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// HasParticipant reports whether userID is one of the chat's two users.
func (c *Chat) HasParticipant(userID uint64) bool {
	return c.User1ID == userID || c.User2ID == userID
}
