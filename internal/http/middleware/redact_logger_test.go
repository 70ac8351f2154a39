package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact_Patterns(t *testing.T) {
	cases := map[string]string{
		"":                                     "",
		"plain":                                "plain",
		"mail a.b+tag@example.com":             "mail [REDACTED:email]",
		"123e4567-e89b-12d3-a456-426614174000": "[REDACTED:id]",
		"call 212-555-1212":                    "call [REDACTED:phone]",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key", "  "}}))

	r.GET("/users/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/users/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "chat_session=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) {
		t.Fatalf("expected info log, got: %s", logs)
	}
	if !strings.Contains(logs, `"route":"/users/:id"`) || !strings.Contains(logs, `"path":"/users/123"`) {
		t.Fatalf("expected route pattern and raw path, got: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-req"`) {
		t.Fatalf("expected request_id, got: %s", logs)
	}
	if !strings.Contains(logs, `[REDACTED:email]`) || !strings.Contains(logs, `[REDACTED:phone]`) || !strings.Contains(logs, `[REDACTED:id]`) {
		t.Fatalf("expected query redactions, got: %s", logs)
	}
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if !strings.Contains(logs, `"`+h+`":"[REDACTED]"`) {
			t.Fatalf("%s must be masked: %s", h, logs)
		}
	}
	if strings.Contains(logs, "topsecret") || strings.Contains(logs, "shhh") {
		t.Fatalf("secret header value leaked: %s", logs)
	}
	if !strings.Contains(logs, `"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`) {
		t.Fatalf("expected redacted X-Custom header, got: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{}))

	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/ctxerr", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	for path, rid := range map[string]string{"/warn": "rid-warn", "/error": "rid-err", "/ctxerr": "rid-ctx"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", rid)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	levelFor := func(rid string) string {
		for _, l := range lines {
			if strings.Contains(l, `"request_id":"`+rid+`"`) {
				switch {
				case strings.Contains(l, `"level":"error"`):
					return "error"
				case strings.Contains(l, `"level":"warn"`):
					return "warn"
				default:
					return "info"
				}
			}
		}
		return ""
	}
	if got := levelFor("rid-warn"); got != "warn" {
		t.Fatalf("404 level = %q; want warn", got)
	}
	if got := levelFor("rid-err"); got != "error" {
		t.Fatalf("500 level = %q; want error", got)
	}
	if got := levelFor("rid-ctx"); got != "error" {
		t.Fatalf("context error level = %q; want error", got)
	}
	if !strings.Contains(buf.String(), `"errors":"Error #01: boom`) {
		t.Fatalf("expected recorded handler errors in log: %s", buf.String())
	}
}

func TestRedactingLogger_PicksUpLaterLoggerFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{}))
	r.Use(func(c *gin.Context) {
		setLogger(c, LoggerFrom(c).With().Uint("user_id", 42).Logger())
		c.Next()
	})
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))

	if !strings.Contains(buf.String(), `"user_id":42`) {
		t.Fatalf("access log should carry user_id added downstream: %s", buf.String())
	}
}
