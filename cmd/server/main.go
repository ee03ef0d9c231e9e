package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Marwakhot/chronicles/api"
	"github.com/Marwakhot/chronicles/internal/comment"
	"github.com/Marwakhot/chronicles/internal/gossip"
	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/platform/database"
	"github.com/Marwakhot/chronicles/internal/platform/health"
	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/platform/metrics"
	"github.com/Marwakhot/chronicles/internal/platform/ratelimit"
	"github.com/Marwakhot/chronicles/internal/platform/shutdown"
	"github.com/Marwakhot/chronicles/internal/platform/startup"
	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/user"
	"github.com/Marwakhot/chronicles/pkg/lifecycle"
	"github.com/Marwakhot/chronicles/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env 文件是可选的，不存在时只使用环境变量和配置文件
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("无法加载配置: " + err.Error())
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		panic("无法初始化日志: " + err.Error())
	}
	logger.L = log
	defer log.Sync()

	// 2. 连接数据库与Redis
	if err := database.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库初始化失败", "error", err)
	}
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		log.Fatal("Redis初始化失败", "error", err)
	}

	// 3. 迁移表结构
	if err := startup.InitializeApplication(database.DB); err != nil {
		log.Fatal("应用初始化失败，无法启动", "error", err)
	}

	// 4. 令牌签发器。未配置密钥时随机生成，重启后旧令牌失效
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret, err = token.GenerateSecretKey()
		if err != nil {
			log.Fatal("无法生成令牌密钥", "error", err)
		}
		log.Warn("未配置 auth.jwtSecret，已生成临时密钥")
	}
	tokens := token.NewIssuer(secret, cfg.Auth.TokenTTL)

	// 5. 组装各模块
	userRepo := user.NewRepository(database.DB)
	userSvc := user.NewService(userRepo, tokens, log)
	progressRepo := progress.NewRepository(database.DB)
	recorder := progress.NewRecorder(database.DB, userRepo, progressRepo, log)
	commentSvc := comment.NewService(database.DB, comment.NewRepository(database.DB), userRepo, log)

	templates, err := gossip.LoadTemplates(cfg.Gossip.TemplatesPath)
	if err != nil {
		log.Fatal("无法加载八卦模板", "error", err)
	}
	rng := gossip.NewTimeSeededRandom()
	gossipSvc := gossip.NewService(cfg.Gossip, gossip.Deps{
		DB:          database.DB,
		Users:       userRepo,
		Progress:    progressRepo,
		Synthesizer: gossip.NewSynthesizer(templates, rng, nil),
		Store:       gossip.NewStore(database.DB, cfg.Gossip.Retention, rng),
		Cache:       gossip.NewFeedCache(database.RDB, cfg.Gossip.CacheTTL, database.IsRedisHealthy),
	}, log)

	// 6. 启动后台服务
	gracefulMgr := lifecycle.NewManager(log)
	forcefulMgr := lifecycle.NewManager(log)

	if database.RDB != nil {
		health.PerformCheck(context.Background())
		if err := gracefulMgr.Run("redis-health-check", health.StartRedisHealthCheck); err != nil {
			log.Fatal("无法启动Redis健康检查", "error", err)
		}
	}
	if cfg.Gossip.Schedule.Enabled {
		if err := gracefulMgr.Run("gossip-scheduler", gossip.NewScheduler(gossipSvc, cfg.Gossip.Schedule.Interval)); err != nil {
			log.Fatal("无法启动八卦定时生成", "error", err)
		}
	}

	// 7. HTTP服务
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	limiter := ratelimit.New(database.RDB, database.IsRedisHealthy, log)
	limits := cfg.Server.RateLimit
	api.SetupRoutes(r, api.Handlers{
		User:          user.NewHandler(userSvc, log),
		Progress:      progress.NewHandler(recorder, log),
		Comment:       comment.NewHandler(commentSvc, log),
		Gossip:        gossip.NewHandler(gossipSvc, log),
		RequireAuth:   user.RequireAuthMiddleware(userSvc),
		AuthLimit:     ratelimit.Middleware(limiter, "auth", limits.AuthMax, limits.Window),
		GenerateLimit: ratelimit.Middleware(limiter, "generate", limits.GenerateMax, limits.Window),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		log.Info("服务器已准备就绪，开始监听", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", "error", err)
		}
	}()

	shutdown.NewCoordinator(gracefulMgr, forcefulMgr, log).ListenForSignalsAndShutdown(server)
}
