package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestChats_RequireIdentity(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/chats", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "User ID required in X-User-Id header" {
		t.Fatalf("unexpected error message: %v", msg)
	}

	w = doJSON(t, r, http.MethodGet, "/chats", nil, map[string]string{"X-Auth-Token": "garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
}

func TestChats_TokenIdentity(t *testing.T) {
	r, _ := setupRouter(t)

	_, token := register(t, r, "ann")

	w := doJSON(t, r, http.MethodGet, "/chats", nil, map[string]string{"X-Auth-Token": token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d body %s", w.Code, w.Body.String())
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	r, _ := setupRouter(t)

	_, token := register(t, r, "ann")
	hdr := map[string]string{"X-Auth-Token": token}

	w := doJSON(t, r, http.MethodPost, "/logout", nil, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/chats", nil, hdr)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestChatFlow(t *testing.T) {
	r, _ := setupRouter(t)

	aliceID, _ := register(t, r, "alice")
	bobID, _ := register(t, r, "bob")
	malloryID, _ := register(t, r, "mallory")

	// first create inserts
	w := doJSON(t, r, http.MethodPost, "/chats", gin.H{
		"action":        "create_chat",
		"other_user_id": bobID,
	}, userHeader(aliceID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create chat: expected 201, got %d body %s", w.Code, w.Body.String())
	}
	chatID := decode(t, w)["chat_id"].(float64)

	// reversed pair is idempotent
	w = doJSON(t, r, http.MethodPost, "/chats", gin.H{
		"action":        "create_chat",
		"other_user_id": aliceID,
	}, userHeader(bobID))
	if w.Code != http.StatusOK {
		t.Fatalf("recreate chat: expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["chat_id"].(float64); got != chatID {
		t.Fatalf("expected same chat id %v, got %v", chatID, got)
	}

	w = doJSON(t, r, http.MethodPost, "/chats", gin.H{
		"action":  "send_message",
		"chat_id": chatID,
		"text":    "hi bob",
	}, userHeader(aliceID))
	if w.Code != http.StatusCreated {
		t.Fatalf("send message: expected 201, got %d body %s", w.Code, w.Body.String())
	}
	sent := decode(t, w)
	if sent["message_id"] == nil || sent["created_at"] == nil {
		t.Fatalf("send message: incomplete body %v", sent)
	}

	msgPath := fmt.Sprintf("/chats?chat_id=%.0f", chatID)
	w = doJSON(t, r, http.MethodGet, msgPath, nil, userHeader(bobID))
	if w.Code != http.StatusOK {
		t.Fatalf("list messages: expected 200, got %d", w.Code)
	}
	msgs := decode(t, w)["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	first := msgs[0].(map[string]any)
	if first["text"] != "hi bob" || first["sender_username"] != "alice" {
		t.Fatalf("unexpected message: %v", first)
	}

	w = doJSON(t, r, http.MethodGet, "/chats", nil, userHeader(bobID))
	if w.Code != http.StatusOK {
		t.Fatalf("list chats: expected 200, got %d", w.Code)
	}
	chats := decode(t, w)["chats"].([]any)
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(chats))
	}
	summary := chats[0].(map[string]any)
	if summary["other_username"] != "alice" {
		t.Fatalf("wrong counterpart: %v", summary)
	}
	if summary["unread_count"].(float64) != 1 {
		t.Fatalf("expected 1 unread, got %v", summary["unread_count"])
	}
	if summary["last_message"] != "hi bob" {
		t.Fatalf("wrong last message: %v", summary["last_message"])
	}

	// outsiders get 403 and nothing is deleted
	for _, body := range []gin.H{
		{"action": "send_message", "chat_id": chatID, "text": "intruder"},
		{"action": "delete_chat", "chat_id": chatID},
	} {
		w = doJSON(t, r, http.MethodPost, "/chats", body, userHeader(malloryID))
		if w.Code != http.StatusForbidden {
			t.Fatalf("outsider %v: expected 403, got %d", body["action"], w.Code)
		}
		if msg := decode(t, w)["error"]; msg != "Not a participant of this chat" {
			t.Fatalf("outsider %v: unexpected error %v", body["action"], msg)
		}
	}
	w = doJSON(t, r, http.MethodGet, msgPath, nil, userHeader(malloryID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider read: expected 403, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, msgPath, nil, userHeader(bobID))
	if got := len(decode(t, w)["messages"].([]any)); got != 1 {
		t.Fatalf("rejected delete removed messages: %d left", got)
	}

	// participant delete removes both chat and messages
	w = doJSON(t, r, http.MethodPost, "/chats", gin.H{
		"action":  "delete_chat",
		"chat_id": chatID,
	}, userHeader(aliceID))
	if w.Code != http.StatusOK {
		t.Fatalf("delete chat: expected 200, got %d body %s", w.Code, w.Body.String())
	}
	if ok := decode(t, w)["success"]; ok != true {
		t.Fatalf("delete chat: expected success body, got %v", ok)
	}

	w = doJSON(t, r, http.MethodGet, "/chats", nil, userHeader(bobID))
	if got := len(decode(t, w)["chats"].([]any)); got != 0 {
		t.Fatalf("expected no chats after delete, got %d", got)
	}
	w = doJSON(t, r, http.MethodGet, msgPath, nil, userHeader(bobID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted chat, got %d", w.Code)
	}
}

func TestChats_MissingParameters(t *testing.T) {
	r, _ := setupRouter(t)

	aliceID, _ := register(t, r, "alice")
	bobID, _ := register(t, r, "bob")

	w := doJSON(t, r, http.MethodPost, "/chats", gin.H{
		"action":        "create_chat",
		"other_user_id": bobID,
	}, userHeader(aliceID))
	chatID := decode(t, w)["chat_id"].(float64)

	cases := []struct {
		body gin.H
		msg  string
	}{
		{gin.H{"action": "create_chat"}, "other_user_id required"},
		{gin.H{"action": "create_chat", "other_user_id": 0}, "other_user_id required"},
		{gin.H{"action": "send_message", "text": "hi"}, "chat_id and text required"},
		{gin.H{"action": "send_message", "chat_id": 0, "text": "hi"}, "chat_id and text required"},
		{gin.H{"action": "send_message", "chat_id": chatID, "text": "   "}, "chat_id and text required"},
		{gin.H{"action": "delete_chat"}, "chat_id required"},
		{gin.H{"action": "delete_chat", "chat_id": 0}, "chat_id required"},
		{gin.H{"action": "explode"}, "Invalid action"},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodPost, "/chats", tc.body, userHeader(aliceID))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", tc.body, w.Code)
		}
		if msg := decode(t, w)["error"]; msg != tc.msg {
			t.Fatalf("%v: expected %q, got %v", tc.body, tc.msg, msg)
		}
	}
}
