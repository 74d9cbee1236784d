package handler

import (
	"context"
	"net/http"

	"chatroom/internal/middleware"
	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

// MaxFormBytes caps login and sign-up bodies.
const MaxFormBytes = 32 << 10

type SessionService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, handle, email, password string) (string, error)
	Logout(ctx context.Context, sessionID string) error
}

type AuthHandler struct {
	Sessions     SessionService
	SecureCookie bool
}

func (h *AuthHandler) Login(c *gin.Context) {
	form, ok := readForm(c, "email", "password")
	if !ok {
		return
	}

	id, err := h.Sessions.Login(c.Request.Context(), form["email"], form["password"])
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	h.startSession(c, id)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	form, ok := readForm(c, "handle", "email", "password")
	if !ok {
		return
	}

	id, err := h.Sessions.Signup(c.Request.Context(), form["handle"], form["email"], form["password"])
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	h.startSession(c, id)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sc, ok := middleware.SessionFromContext(c)
	if !ok {
		middleware.Fail(c, &session.Error{Kind: session.Unauthorized})
		return
	}
	if err := h.Sessions.Logout(c.Request.Context(), sc.SessionID); err != nil {
		middleware.Fail(c, err)
		return
	}

	h.setCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) startSession(c *gin.Context, id string) {
	h.setCookie(c, id, 0)
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// readForm parses an urlencoded body and returns the named fields. A field
// that is absent answers 400, an oversized body 413.
func readForm(c *gin.Context, fields ...string) (map[string]string, bool) {
	if err := c.Request.ParseForm(); err != nil {
		status := http.StatusBadRequest
		if middleware.IsBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		c.String(status, http.StatusText(status))
		c.Abort()
		return nil, false
	}

	out := make(map[string]string, len(fields))
	for _, name := range fields {
		values, present := c.Request.PostForm[name]
		if !present || len(values) == 0 {
			c.String(http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
			c.Abort()
			return nil, false
		}
		out[name] = values[0]
	}
	return out, true
}
