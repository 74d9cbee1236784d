package middleware

import (
	"log/slog"
	"net/http"

	"chatroom/internal/logging"
	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

// StatusFor maps a session error kind to its HTTP status. Unauthorized is
// answered with a redirect to the login page instead.
func StatusFor(kind session.Kind) int {
	switch kind {
	case session.BadRequest:
		return http.StatusBadRequest
	case session.NotFound:
		return http.StatusNotFound
	case session.Unauthorized:
		return http.StatusSeeOther
	case session.Conflict:
		return http.StatusConflict
	case session.Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Fail logs err and aborts the request with the response for its kind. The
// cause never reaches the client.
func Fail(c *gin.Context, err error) {
	kind := session.KindOf(err)
	status := StatusFor(kind)

	log := logging.FromContext(c.Request.Context(), nil)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(c.Request.Context(), level, "request failed", "kind", kind.String(), "error", err)

	if kind == session.Unauthorized {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.String(status, http.StatusText(status))
	c.Abort()
}
