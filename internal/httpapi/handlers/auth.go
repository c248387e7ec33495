package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/whisperchat/whisper-backend/internal/auth"
	"github.com/whisperchat/whisper-backend/internal/common"
	"github.com/whisperchat/whisper-backend/internal/httpapi/middleware"
	"github.com/whisperchat/whisper-backend/internal/models"
	"github.com/whisperchat/whisper-backend/pkg/logger"
	"gorm.io/gorm"
)

type authReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Action   string `json:"action"`
}

// Auth handles registration and login through one action-dispatched
// endpoint, matching the shape the frontend already speaks.
func (h *Handler) Auth(c *gin.Context) {
	var req authReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		common.Error(c, http.StatusBadRequest, "Username and password required")
		return
	}

	switch req.Action {
	case "register":
		h.register(c, username, req.Password)
	case "login":
		h.login(c, username, req.Password)
	default:
		common.Error(c, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handler) register(c *gin.Context, username, password string) {
	// character bounds, not bytes
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		common.Error(c, http.StatusBadRequest, "Username must be 3-50 characters")
		return
	}

	var cnt int64
	if err := h.DB.Model(&models.User{}).Where("username = ?", username).Count(&cnt).Error; err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if cnt > 0 {
		common.Error(c, http.StatusConflict, "Username already exists")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Status:       models.StatusOnline,
		LastSeen:     time.Now(),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// Unique index may reject a concurrent duplicate the count missed.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			common.Error(c, http.StatusConflict, "Username already exists")
			return
		}
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.Tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.markOnline(c, user.ID)

	c.JSON(http.StatusCreated, gin.H{
		"user":  userBody(&user),
		"token": token,
	})
}

func (h *Handler) login(c *gin.Context, username, password string) {
	var user models.User
	err := h.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Error(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		common.Error(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	now := time.Now()
	err = h.DB.Model(&user).Updates(map[string]any{
		"status":    models.StatusOnline,
		"last_seen": now,
	}).Error
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	user.Status = models.StatusOnline
	user.LastSeen = now

	token, err := h.Tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.markOnline(c, user.ID)

	c.JSON(http.StatusOK, gin.H{
		"user":  userBody(&user),
		"token": token,
	})
}

// Logout revokes the caller's tokens and flips them offline. Runs
// behind the Identity middleware.
func (h *Handler) Logout(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Error(c, http.StatusUnauthorized, "User ID required in X-User-Id header")
		return
	}

	if err := h.Tokens.Revoke(c.Request.Context(), uid); err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	err := h.DB.Model(&models.User{}).Where("id = ?", uid).Updates(map[string]any{
		"status":    models.StatusOffline,
		"last_seen": time.Now(),
	}).Error
	if err != nil {
		common.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.Presence.MarkOffline(c.Request.Context(), uid); err != nil {
		logger.Warn().Err(err).Uint64("user_id", uid).Msg("presence mark offline failed")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) markOnline(c *gin.Context, userID uint64) {
	if err := h.Presence.MarkOnline(c.Request.Context(), userID); err != nil {
		logger.Warn().Err(err).Uint64("user_id", userID).Msg("presence mark online failed")
	}
}

func userBody(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"avatar_url": u.AvatarURL,
		"status":     u.Status,
		"created_at": u.CreatedAt,
	}
}
