package server

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"chatroom/internal/handler"
	"chatroom/internal/hub"
	"chatroom/internal/logging"
	"chatroom/internal/middleware"
	"chatroom/internal/web"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type SessionManager interface {
	middleware.Authorizer
	middleware.CSRFChecker
	handler.SessionService
}

type Deps struct {
	Sessions       SessionManager
	Hub            *hub.Hub
	Logger         *slog.Logger
	Ping           func(ctx context.Context) error
	AllowedOrigins []string
	CookieSecure   bool
	// LoginLimiter guards POST /login and /sign-up. Required; the caller owns
	// it and calls Stop on shutdown.
	LoginLimiter *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.LoginLimiter == nil {
		panic("server: Deps.LoginLimiter is required")
	}

	log := logging.OrDefault(deps.Logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.SetHTMLTemplate(template.Must(web.Templates()))

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost},
			AllowHeaders:     []string{"Content-Type", middleware.CSRFHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	health := &handler.HealthHandler{Ping: deps.Ping, Logger: log}
	r.GET("/health", health.Check)
	r.StaticFS("/assets", http.FS(web.Assets()))

	limiter := deps.LoginLimiter
	limitBody := middleware.LimitBody(handler.MaxFormBytes)

	pages := handler.PageHandler{}
	authHandler := &handler.AuthHandler{Sessions: deps.Sessions, SecureCookie: deps.CookieSecure}

	public := r.Group("/", middleware.SecurityHeaders())
	public.GET("/", pages.Index)
	public.GET("/login", pages.Login)
	public.GET("/sign-up", pages.SignUp)
	public.POST("/login", middleware.RateLimitMiddleware(limiter), limitBody, authHandler.Login)
	public.POST("/sign-up", middleware.RateLimitMiddleware(limiter), limitBody, authHandler.SignUp)

	protected := r.Group("/", middleware.SecurityHeaders(), middleware.RequireSession(deps.Sessions))
	protected.GET("/chat", pages.Chat)
	protected.POST("/logout", limitBody, middleware.RequireCSRF(deps.Sessions), authHandler.Logout)

	wsHandler := handler.NewWebSocketHandler(deps.Hub, deps.AllowedOrigins, log)
	r.GET("/ws", middleware.RequireSession(deps.Sessions), wsHandler.Serve)

	return r
}
