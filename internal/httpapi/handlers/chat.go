package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/chat"
	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/internal/httpapi/middleware"
	"github.com/whisperchat/whisper-backend/internal/store/rabbitmq"
	"github.com/whisperchat/whisper-backend/pkg/logger"
)

// GetChats serves both reads of the chat endpoint: with a chat_id query
// it returns that chat's messages, without one the caller's chat list.
func (h *Handler) GetChats(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "User ID required in X-User-Id header")
		return
	}

	if raw := c.Query("chat_id"); raw != "" {
		chatID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			common.Error(c, http.StatusBadRequest, "Invalid chat_id")
			return
		}
		h.listMessages(c, uid, chatID)
		return
	}

	summaries, err := h.ChatSvc.ListChats(c.Request.Context(), uid)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if online := h.onlineSet(c, otherIDs(summaries)); online != nil {
		for i := range summaries {
			summaries[i].OtherStatus = presenceStatus(online[summaries[i].OtherUserID])
		}
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

func (h *Handler) listMessages(c *gin.Context, uid, chatID uint64) {
	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, chatID)
	if err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type chatActionReq struct {
	Action      string  `json:"action"`
	OtherUserID *uint64 `json:"other_user_id"`
	ChatID      *uint64 `json:"chat_id"`
	Text        string  `json:"text"`
}

// PostChats dispatches the chat mutations by action, the way the
// frontend has always sent them.
func (h *Handler) PostChats(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "User ID required in X-User-Id header")
		return
	}

	var req chatActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	switch req.Action {
	case "create_chat":
		h.createChat(c, uid, req)
	case "send_message":
		h.sendMessage(c, uid, req)
	case "delete_chat":
		h.deleteChat(c, uid, req)
	default:
		common.Error(c, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handler) createChat(c *gin.Context, uid uint64, req chatActionReq) {
	if req.OtherUserID == nil || *req.OtherUserID == 0 {
		common.Error(c, http.StatusBadRequest, "other_user_id required")
		return
	}

	chatID, created, err := h.ChatSvc.CreateChat(c.Request.Context(), uid, *req.OtherUserID)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"chat_id": chatID})
}

func (h *Handler) sendMessage(c *gin.Context, uid uint64, req chatActionReq) {
	text := strings.TrimSpace(req.Text)
	if req.ChatID == nil || *req.ChatID == 0 || text == "" {
		common.Error(c, http.StatusBadRequest, "chat_id and text required")
		return
	}

	msg, recipientID, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, *req.ChatID, text)
	if err != nil {
		h.chatError(c, err)
		return
	}

	if h.Events != nil {
		ev := rabbitmq.MessageEvent{
			MessageID:   msg.ID,
			ChatID:      msg.ChatID,
			SenderID:    uid,
			RecipientID: recipientID,
			SentAt:      msg.CreatedAt,
		}
		if err := h.Events.PublishMessageEvent(c.Request.Context(), ev); err != nil {
			// Delivery stays poll-based, the event is only for notifications.
			logger.Warn().Err(err).Uint64("message_id", msg.ID).Msg("publish message event failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message_id": msg.ID,
		"created_at": msg.CreatedAt,
	})
}

func (h *Handler) deleteChat(c *gin.Context, uid uint64, req chatActionReq) {
	if req.ChatID == nil || *req.ChatID == 0 {
		common.Error(c, http.StatusBadRequest, "chat_id required")
		return
	}

	if err := h.ChatSvc.DeleteChat(c.Request.Context(), uid, *req.ChatID); err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrChatNotFound):
		common.Error(c, http.StatusNotFound, "Chat not found")
	case errors.Is(err, chat.ErrNotParticipant):
		common.Error(c, http.StatusForbidden, "Not a participant of this chat")
	default:
		common.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}

func otherIDs(summaries []chat.Summary) []uint64 {
	ids := make([]uint64, len(summaries))
	for i := range summaries {
		ids[i] = summaries[i].OtherUserID
	}
	return ids
}
