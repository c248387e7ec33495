package chat

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetChatByID(ctx context.Context, id uint64) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetChatByPair(ctx context.Context, user1ID, user2ID uint64) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CreateChat(ctx context.Context, c *Chat) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// DeleteChatWithMessages removes a chat and everything in it as one
// transaction, so a failure leaves both tables untouched.
func (r *Repo) DeleteChatWithMessages(ctx context.Context, chatID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", chatID).Delete(&Chat{}).Error
	})
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns a chat's messages oldest first, each joined with
// the sender's username.
func (r *Repo) ListMessages(ctx context.Context, chatID uint64) ([]MessageView, error) {
	var msgs []MessageView
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.id, m.text, m.sender_id, m.is_read, m.created_at, u.username AS sender_username
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, chatID).
		Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListSummaries returns every chat userID participates in, newest
// activity first; chats without messages sort last. The IS NULL term
// in the ordering is the portable spelling of NULLS LAST.
func (r *Repo) ListSummaries(ctx context.Context, userID uint64) ([]Summary, error) {
	var rows []Summary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id AS chat_id,
			CASE WHEN c.user1_id = ? THEN c.user2_id ELSE c.user1_id END AS other_user_id,
			u.username AS other_username,
			u.avatar_url AS other_avatar,
			u.status AS other_status,
			lm.text AS last_message,
			lm.created_at AS last_message_time,
			(SELECT COUNT(*) FROM messages WHERE chat_id = c.id AND sender_id <> ? AND is_read = ?) AS unread_count
		FROM chats c
		JOIN users u ON u.id = CASE WHEN c.user1_id = ? THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN messages lm ON lm.id = (
			SELECT id FROM messages WHERE chat_id = c.id ORDER BY created_at DESC, id DESC LIMIT 1
		)
		WHERE c.user1_id = ? OR c.user2_id = ?
		ORDER BY (lm.created_at IS NULL) ASC, lm.created_at DESC`,
		userID, userID, false, userID, userID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
