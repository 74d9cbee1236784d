package middleware

import (
	"errors"
	"net/http"

	"chatroom/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrf_token"
)

type CSRFChecker interface {
	CheckCSRF(sc session.Context, submitted string) error
}

// RequireCSRF must run after RequireSession. Safe methods pass through.
func RequireCSRF(checker CSRFChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		sc, ok := SessionFromContext(c)
		if !ok {
			Fail(c, &session.Error{Kind: session.Unauthorized})
			return
		}

		submitted := c.GetHeader(CSRFHeader)
		if submitted == "" {
			submitted = c.PostForm(CSRFFormField)
		}
		if err := checker.CheckCSRF(sc, submitted); err != nil {
			Fail(c, err)
			return
		}
		c.Next()
	}
}

// LimitBody caps the request body; reading past n fails the form parse.
func LimitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from a LimitBody cap.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
