package api

import (
	"github.com/Marwakhot/chronicles/internal/comment"
	"github.com/Marwakhot/chronicles/internal/gossip"
	"github.com/Marwakhot/chronicles/internal/platform/health"
	"github.com/Marwakhot/chronicles/internal/platform/metrics"
	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/gin-gonic/gin"
)

// Handlers 汇总注册路由所需的各模块处理器。
type Handlers struct {
	User     *user.Handler
	Progress *progress.Handler
	Comment  *comment.Handler
	Gossip   *gossip.Handler
	// RequireAuth 是校验 Bearer 令牌的中间件
	RequireAuth gin.HandlerFunc
	// AuthLimit 与 GenerateLimit 是可选的限流中间件
	AuthLimit     gin.HandlerFunc
	GenerateLimit gin.HandlerFunc
}

// orNext 把nil中间件替换为直接放行。
func orNext(mw gin.HandlerFunc) gin.HandlerFunc {
	if mw == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return mw
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	{
		api.GET("/health", health.GetStatus)

		// 账户相关的路由组 /api/auth
		authRoutes := api.Group("/auth", orNext(h.AuthLimit))
		{
			authRoutes.POST("/signup", h.User.Signup)
			authRoutes.POST("/login", h.User.Login)
		}

		// 个人资料 /api/profile
		profileRoutes := api.Group("/profile", h.RequireAuth)
		{
			profileRoutes.GET("", h.User.GetProfile)
			profileRoutes.PUT("", h.User.UpdateProfile)
		}

		// 游玩进度 /api/progress
		progressRoutes := api.Group("/progress", h.RequireAuth)
		{
			progressRoutes.GET("", h.Progress.GetProgress)
			progressRoutes.POST("", h.Progress.SaveProgress)
		}

		// 评论 /api/comments，读取无需登录
		api.GET("/comments", h.Comment.ListComments)
		commentRoutes := api.Group("/comments", h.RequireAuth)
		{
			commentRoutes.POST("", h.Comment.PostComment)
			commentRoutes.PATCH("", h.Comment.LikeComment)
			commentRoutes.DELETE("", h.Comment.DeleteComment)
		}

		// 八卦 /api/gossip
		gossipRoutes := api.Group("/gossip")
		{
			gossipRoutes.GET("", h.Gossip.List)
			gossipRoutes.POST("/generate", orNext(h.GenerateLimit), h.Gossip.Generate)
		}
	}
}
