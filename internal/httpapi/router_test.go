package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/whisperchat/whisper-backend/internal/chat"
	"github.com/whisperchat/whisper-backend/internal/config"
	"github.com/whisperchat/whisper-backend/internal/models"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.AuthToken{}, &chat.Chat{}, &chat.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	cfg := config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}
	return NewRouter(gdb, cfg, nil, nil), gdb
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// register creates a user through the endpoint and returns its id and token.
func register(t *testing.T, r *gin.Engine, username string) (uint64, string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth", gin.H{
		"username": username,
		"password": "secret123",
		"action":   "register",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, w.Code, w.Body.String())
	}
	body := decode(t, w)
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("register %s: missing user in %v", username, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register %s: missing token", username)
	}
	return uint64(user["id"].(float64)), token
}

func userHeader(id uint64) map[string]string {
	return map[string]string{"X-User-Id": fmt.Sprintf("%d", id)}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	r, _ := setupRouter(t)

	register(t, r, "ann")

	w := doJSON(t, r, http.MethodPost, "/auth", gin.H{
		"username": "ann",
		"password": "other",
		"action":   "register",
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["error"]; msg != "Username already exists" {
		t.Fatalf("unexpected error message: %v", msg)
	}
}

func TestRegister_UsernameLength(t *testing.T) {
	r, _ := setupRouter(t)

	// Bounds count characters, not bytes: "ñé" is 4 bytes but 2 runes.
	for _, username := range []string{"ab", "ñé", strings.Repeat("x", 51), strings.Repeat("ñ", 51)} {
		w := doJSON(t, r, http.MethodPost, "/auth", gin.H{
			"username": username,
			"password": "secret123",
			"action":   "register",
		}, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("username %q: expected 400, got %d", username, w.Code)
		}
		if msg := decode(t, w)["error"]; msg != "Username must be 3-50 characters" {
			t.Fatalf("username %q: unexpected error %v", username, msg)
		}
	}

	register(t, r, "ñéñ")
	register(t, r, strings.Repeat("ñ", 50))
}

func TestRegister_StoreErrorIsNotConflict(t *testing.T) {
	r, gdb := setupRouter(t)

	if err := gdb.Exec("CREATE TRIGGER users_insert_fail BEFORE INSERT ON users BEGIN SELECT RAISE(ABORT, 'insert disabled'); END").Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/auth", gin.H{
		"username": "ann",
		"password": "secret123",
		"action":   "register",
	}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d body %s", w.Code, w.Body.String())
	}
	if msg := decode(t, w)["error"]; msg != "Internal server error" {
		t.Fatalf("unexpected error message: %v", msg)
	}
}

func TestLogin(t *testing.T) {
	r, _ := setupRouter(t)

	register(t, r, "ann")

	w := doJSON(t, r, http.MethodPost, "/auth", gin.H{
		"username": "ann",
		"password": "secret123",
		"action":   "login",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("login: missing token")
	}
	user := body["user"].(map[string]any)
	if user["status"] != models.StatusOnline {
		t.Fatalf("login: expected online status, got %v", user["status"])
	}

	for _, creds := range []gin.H{
		{"username": "ann", "password": "wrong", "action": "login"},
		{"username": "ghost", "password": "secret123", "action": "login"},
	} {
		w := doJSON(t, r, http.MethodPost, "/auth", creds, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("login %v: expected 401, got %d", creds, w.Code)
		}
		if msg := decode(t, w)["error"]; msg != "Invalid username or password" {
			t.Fatalf("login %v: unexpected error %v", creds, msg)
		}
	}
}

func TestAuth_BadRequests(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth", gin.H{"username": "ann", "password": "pw", "action": "frobnicate"}, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Invalid action" {
		t.Fatalf("unknown action: got %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/auth", gin.H{"username": "ann", "action": "login"}, nil)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Username and password required" {
		t.Fatalf("missing password: got %d body %s", w.Code, w.Body.String())
	}
}

func TestAuth_MethodNotAllowed(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/auth", nil, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "Method not allowed" {
		t.Fatalf("unexpected error message: %v", msg)
	}
}

func TestPreflight_Returns200(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/chats", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", got)
	}
}
