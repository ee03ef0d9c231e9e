package database

import (
	"sync/atomic"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
)

// redisHealthy 由健康检查器维护。未启用Redis时保持false。
var redisHealthy atomic.Bool

// IsRedisHealthy 报告Redis当前是否可用。
func IsRedisHealthy() bool {
	return RDB != nil && redisHealthy.Load()
}

// UpdateStatus 更新Redis健康状态，仅在状态变化时记录日志。
func UpdateStatus(healthy bool) {
	if redisHealthy.Swap(healthy) == healthy {
		return
	}
	if healthy {
		logger.L.Info("健康检查: Redis服务状态已更新为 [可用]")
	} else {
		logger.L.Warn("健康检查: Redis服务状态已更新为 [不可用]")
	}
}
