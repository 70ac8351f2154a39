package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/llm"
	"github.com/tbourn/chatproxy/internal/repo"
	"github.com/tbourn/chatproxy/internal/services"
)

const (
	testCookie = "chat_session"
	testSecret = "0123456789abcdef0123456789abcdef"
)

// ---------- test env: real services over in-memory SQLite ----------

type testEnv struct {
	db     *gorm.DB
	auth   *services.AuthService
	hist   *services.HistoryService
	model  *llm.Scripted
	webDir string
	r      *gin.Engine
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	env := &testEnv{
		db:     db,
		auth:   services.NewAuthService(db, testSecret, time.Hour, bcrypt.MinCost),
		hist:   services.NewHistoryService(db),
		model:  &llm.Scripted{Chunks: []string{"Hel", "lo"}},
		webDir: t.TempDir(),
	}
	chat := services.NewChatService(env.hist, env.model, "default-model", 100, time.Second)
	h := New(env.auth, env.hist, chat, CookieOptions{Name: testCookie, MaxAge: time.Hour}, env.webDir)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Session(env.auth, testCookie))
	api := r.Group("/api")
	api.GET("/auth/status", h.AuthStatus)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/signup", h.Signup)

	authed := api.Group("", middleware.RequireAuthenticated())
	authed.POST("/auth/logout", h.Logout)
	authed.POST("/generate", h.Generate)
	authed.GET("/history/", h.GetAllHistory)
	authed.GET("/history/:session_id", h.GetHistory)
	authed.DELETE("/history/:session_id", h.DeleteHistory)
	r.NoRoute(h.Static)

	env.r = r
	return env
}

// do sends a request with an optional JSON body and session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response (status %d, body %s)", testCookie, w.Code, w.Body.String())
	return nil
}

// signup creates an account over HTTP and returns its session cookie.
func (e *testEnv) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{Email: email, Password: "pw123", Name: "A"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup %s: %d %s", email, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error envelope %q: %v", w.Body.String(), err)
	}
	return er
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
