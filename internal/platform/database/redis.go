package database

import (
	"context"
	"fmt"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例。未启用Redis时为nil。
var RDB *redis.Client

// Ctx 是一个全局的上下文，用于Redis操作
var Ctx = context.Background()

// InitRedis 初始化与Redis数据库的连接
// Redis 只承担缓存职责，未启用时直接跳过。
func InitRedis(cfg config.RedisConfig) error {
	if !cfg.Enabled {
		UpdateStatus(false)
		logger.L.Info("Redis未启用，八卦列表将直接读取数据库")
		return nil
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		return fmt.Errorf("无法连接到Redis: %w", err)
	}

	UpdateStatus(true)
	logger.L.Info("Redis连接成功", "address", cfg.Address)
	return nil
}
