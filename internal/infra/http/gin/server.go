package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"halfandhalf/internal/infra/config"
	"halfandhalf/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Post           PostHTTP
	Chat           ChatHTTP
	Me             MeHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/anonymous", h.Auth.Anonymous)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Post != nil {
		api.GET("/posts", h.Post.Catalog)
		api.POST("/posts", h.Post.Create)
		api.GET("/posts/:id", h.Post.Get)
		api.PATCH("/posts/:id", h.Post.Update)
		api.DELETE("/posts/:id", h.Post.Delete)
	}
	if h.Chat != nil {
		api.POST("/posts/:id/chat", h.Chat.Open)
		chatGroup := api.Group("/chats")
		chatGroup.GET("", h.Chat.List)
		chatGroup.GET("/stream", h.Chat.Stream)
		chatGroup.GET("/:id/messages", h.Chat.Messages)
		chatGroup.POST("/:id/messages", h.Chat.Send)
		chatGroup.POST("/:id/read", h.Chat.Read)
		chatGroup.POST("/:id/leave", h.Chat.Leave)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/posts", h.Me.ListPosts)
		meGroup.GET("/archive", h.Me.ListArchive)
		meGroup.POST("/archive/:id/repost", h.Me.Repost)
		meGroup.DELETE("/archive/:id", h.Me.RemoveArchive)
		meGroup.GET("/blacklist", h.Me.Blacklist)
		meGroup.POST("/blacklist/:id", h.Me.Block)
		meGroup.DELETE("/blacklist/:id", h.Me.Unblock)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
