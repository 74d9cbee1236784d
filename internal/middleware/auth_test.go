package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"chatroom/internal/logging"
	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

type stubAuthz struct {
	sessions map[string]session.Context
	err      error
}

func (s stubAuthz) Authorize(_ context.Context, cookie string) (session.Context, error) {
	if s.err != nil {
		return session.Context{}, s.err
	}
	sc, ok := s.sessions[cookie]
	if !ok {
		return session.Context{}, &session.Error{Kind: session.Unauthorized}
	}
	return sc, nil
}

type stubCSRF struct{}

func (stubCSRF) CheckCSRF(sc session.Context, submitted string) error {
	if submitted != sc.CSRFToken {
		return &session.Error{Kind: session.Forbidden}
	}
	return nil
}

func newAuthRouter(authz Authorizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chat", RequireSession(authz), func(c *gin.Context) {
		sc, ok := SessionFromContext(c)
		if !ok || sc.UserID != 7 {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/logout", LimitBody(1<<10), RequireSession(authz), RequireCSRF(stubCSRF{}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

var goodAuthz = stubAuthz{sessions: map[string]session.Context{
	"cookie-1": {SessionID: "cookie-1", UserID: 7, CSRFToken: "tok"},
}}

func TestRequireSession_SetsContext(t *testing.T) {
	r := newAuthRouter(goodAuthz)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireSession_RedirectsWithoutSession(t *testing.T) {
	r := newAuthRouter(goodAuthz)

	for _, cookie := range []string{"", "forged"} {
		req := httptest.NewRequest(http.MethodGet, "/chat", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
			t.Fatalf("cookie %q: expected 303 to /login, got %d %q", cookie, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestRequireSession_StoreFailureIs500(t *testing.T) {
	r := newAuthRouter(stubAuthz{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Fatalf("cause leaked to client: %q", w.Body.String())
	}
}

func TestFail_LogsToDefaultWithoutRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, slog.LevelInfo, "text"))
	defer slog.SetDefault(prev)

	r := newAuthRouter(stubAuthz{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-1"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request failed") || !strings.Contains(buf.String(), "db down") {
		t.Fatalf("expected failure logged to default logger, got:\n%s", buf.String())
	}
}

func TestRequireCSRF(t *testing.T) {
	r := newAuthRouter(goodAuthz)

	post := func(header, form string) int {
		body := url.Values{}
		if form != "" {
			body.Set(CSRFFormField, form)
		}
		req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set(CSRFHeader, header)
		}
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-1"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("tok", ""); code != http.StatusNoContent {
		t.Fatalf("header token: expected 204, got %d", code)
	}
	if code := post("", "tok"); code != http.StatusNoContent {
		t.Fatalf("form token: expected 204, got %d", code)
	}
	if code := post("", ""); code != http.StatusForbidden {
		t.Fatalf("missing token: expected 403, got %d", code)
	}
	if code := post("nope", ""); code != http.StatusForbidden {
		t.Fatalf("wrong token: expected 403, got %d", code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[session.Kind]int{
		session.BadRequest:   http.StatusBadRequest,
		session.NotFound:     http.StatusNotFound,
		session.Unauthorized: http.StatusSeeOther,
		session.Conflict:     http.StatusConflict,
		session.Forbidden:    http.StatusForbidden,
		session.Internal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := StatusFor(kind); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
}
