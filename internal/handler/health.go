package handler

import (
	"context"
	"log/slog"
	"net/http"

	"chatroom/internal/logging"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	// Ping checks the credential store; nil means always healthy.
	Ping func(ctx context.Context) error
	// Logger is used when the request carries no logger; nil means slog.Default().
	Logger *slog.Logger
}

func (h *HealthHandler) Check(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			logging.FromContext(c.Request.Context(), h.Logger).Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
