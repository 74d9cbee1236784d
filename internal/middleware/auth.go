package middleware

import (
	"context"

	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookie     = "id"
	sessionContextKey = "session"
)

type Authorizer interface {
	Authorize(ctx context.Context, cookie string) (session.Context, error)
}

func SessionFromContext(c *gin.Context) (session.Context, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return session.Context{}, false
	}
	sc, ok := v.(session.Context)
	return sc, ok && sc.SessionID != ""
}

// RequireSession resolves the id cookie into a session. Requests without a
// valid one are sent to the login page.
func RequireSession(authz Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(SessionCookie)
		sc, err := authz.Authorize(c.Request.Context(), cookie)
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(sessionContextKey, sc)
		c.Next()
	}
}
