package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"socialfeed/config"
	"socialfeed/handlers"
	"socialfeed/middleware"
	"socialfeed/websocket"
)

// Deps are the wired components the router exposes.
type Deps struct {
	Config  config.Config
	Handler *handlers.Handler
	Users   middleware.UserFinder
	Hub     *websocket.Manager
	Logger  *zap.Logger
	Limiter *middleware.IPRateLimiter
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(d.Logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	if d.Hub != nil {
		router.GET("/ws", websocket.Handler(d.Hub, middleware.TokenParser(d.Config.JWTSecret), d.Config.AllowedOrigins))
	}

	limiter := d.Limiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(d.Config.RateLimitPerMinute)
	}

	h := d.Handler
	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter))
	api.GET("/vapid-public-key", h.GetVapidPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.Config.JWTSecret, d.Users, d.Logger))

	protected.POST("/posts", h.CreatePost)
	protected.GET("/posts", h.GetPosts)

	protected.PATCH("/post/:id", h.UpdatePost)
	protected.GET("/post/:id", h.GetPost)
	protected.DELETE("/post/:id", h.DeletePost)
	protected.PATCH("/post/:id/like", h.LikePost)
	protected.PATCH("/post/:id/unlike", h.UnlikePost)

	protected.GET("/user_posts/:id", h.GetUserPosts)
	protected.GET("/post_discover", h.DiscoverPosts)

	protected.PATCH("/savePost/:id", h.SavePost)
	protected.PATCH("/unSavePost/:id", h.UnsavePost)
	protected.GET("/getSavePosts", h.GetSavedPosts)

	protected.GET("/me", h.GetMyProfile)
	protected.POST("/subscribe", h.Subscribe)

	return router
}
