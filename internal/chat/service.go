package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// CreateChat resolves the single chat for an unordered user pair,
// creating it on first use. The returned bool is true when a new row
// was inserted.
func (s *Service) CreateChat(ctx context.Context, userID, otherUserID uint64) (uint64, bool, error) {
	user1, user2 := userID, otherUserID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	existing, err := s.repo.GetChatByPair(ctx, user1, user2)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	c := &Chat{User1ID: user1, User2ID: user2}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		// A concurrent request may have hit the unique pair index first.
		existing, getErr := s.repo.GetChatByPair(ctx, user1, user2)
		if getErr == nil {
			return existing.ID, false, nil
		}
		return 0, false, err
	}
	return c.ID, true, nil
}

func (s *Service) ListChats(ctx context.Context, userID uint64) ([]Summary, error) {
	return s.repo.ListSummaries(ctx, userID)
}

func (s *Service) ListMessages(ctx context.Context, userID, chatID uint64) ([]MessageView, error) {
	if _, err := s.participantChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, chatID)
}

// SendMessage appends to a chat the sender belongs to. It also returns
// the counterpart's id so callers can fan out notifications.
func (s *Service) SendMessage(ctx context.Context, userID, chatID uint64, text string) (*Message, uint64, error) {
	c, err := s.participantChat(ctx, userID, chatID)
	if err != nil {
		return nil, 0, err
	}

	m := &Message{
		ChatID:   chatID,
		SenderID: userID,
		Text:     text,
		IsRead:   false,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, 0, err
	}
	return m, c.Other(userID), nil
}

// DeleteChat removes a chat and its messages in one transaction. Either
// both are gone afterwards or neither is.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID uint64) error {
	if _, err := s.participantChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.repo.DeleteChatWithMessages(ctx, chatID)
}

func (s *Service) participantChat(ctx context.Context, userID, chatID uint64) (*Chat, error) {
	c, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return c, nil
}
