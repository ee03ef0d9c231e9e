package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/database"
	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/pkg/lifecycle"
	"github.com/gin-gonic/gin"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// PerformCheck 执行一次Redis健康检查并更新全局状态。
func PerformCheck(ctx context.Context) {
	if database.RDB == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := database.RDB.Ping(pingCtx).Err()
	database.UpdateStatus(err == nil)
}

// StartRedisHealthCheck 定期检查Redis的可用性，直到收到停机信号。
// Redis不可用时，依赖缓存的读路径会自动退回数据库。
func StartRedisHealthCheck(handle *lifecycle.Handle) {
	logger.L.Info("Redis健康检查器已启动")
	_ = handle.Every(checkInterval, func(ctx context.Context) bool {
		PerformCheck(ctx)
		return true
	})
	logger.L.Info("Redis健康检查器已关闭")
}

// GetStatus 报告数据库与Redis的当前状态。
func GetStatus(c *gin.Context) {
	dbStatus := "up"
	if database.DB == nil {
		dbStatus = "down"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		dbStatus = "down"
	}

	redisStatus := "disabled"
	if database.RDB != nil {
		redisStatus = "down"
		if database.IsRedisHealthy() {
			redisStatus = "up"
		}
	}

	code := http.StatusOK
	if dbStatus != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"database": dbStatus, "redis": redisStatus})
}
