package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatroom/internal/auth"
	"chatroom/internal/config"
	"chatroom/internal/hub"
	"chatroom/internal/logging"
	"chatroom/internal/middleware"
	"chatroom/internal/server"
	"chatroom/internal/session"
	"chatroom/internal/store"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	protector, err := auth.NewProtector(cfg.AEADKey)
	if err != nil {
		return err
	}
	hasher := auth.NewHasher(cfg.PasswordPepper, auth.DefaultParams)
	manager, err := session.NewManager(st, hasher, protector, cfg.SessionTTL)
	if err != nil {
		return err
	}

	chatHub := hub.New(hub.WithQueueSize(cfg.HubQueueSize), hub.WithLogger(logger))
	defer chatHub.Close()

	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Sessions:       manager,
		Hub:            chatHub,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		CookieSecure:   cfg.CookieSecure,
		LoginLimiter:   limiter,
		Ping:           st.Ping,
	})

	// websocket connections are hijacked, so Shutdown does not wait for them;
	// closing the hub ends every write pump.
	go func() {
		<-ctx.Done()
		chatHub.Close()
	}()

	return server.Run(ctx, cfg, router, logger)
}
