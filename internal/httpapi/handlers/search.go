package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/internal/models"
	"github.com/whisperchat/whisper-backend/pkg/logger"
)

const searchLimit = 20

// SearchUsers does a case-insensitive substring match on usernames.
func (h *Handler) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if utf8.RuneCountInString(query) < 2 {
		common.Error(c, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}

	var users []models.User
	err := h.DB.
		Where("LOWER(username) LIKE LOWER(?)", "%"+query+"%").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	online := h.onlineSet(c, userIDs(users))

	out := make([]gin.H, 0, len(users))
	for i := range users {
		u := &users[i]
		status := u.Status
		if online != nil {
			status = presenceStatus(online[u.ID])
		}
		out = append(out, gin.H{
			"id":         u.ID,
			"username":   u.Username,
			"avatar_url": u.AvatarURL,
			"status":     status,
			"last_seen":  u.LastSeen,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": out})
}

func userIDs(users []models.User) []uint64 {
	ids := make([]uint64, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	return ids
}

// onlineSet asks redis which users were seen recently. Nil when
// presence is not configured or unavailable; callers then keep the
// stored status.
func (h *Handler) onlineSet(c *gin.Context, ids []uint64) map[uint64]bool {
	online, err := h.Presence.OnlineSet(c.Request.Context(), ids)
	if err != nil {
		logger.Warn().Err(err).Msg("presence lookup failed")
		return nil
	}
	return online
}

func presenceStatus(online bool) string {
	if online {
		return models.StatusOnline
	}
	return models.StatusOffline
}
