// Package ratelimit 用Redis有序集合实现按客户端IP的滑动窗口限流。
// Redis未启用或不可用时放行所有请求。
package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 是限流有序集合的键名前缀，完整键为 ratelimit:<scope>:<ip>
const keyPrefix = "ratelimit:"

// Limiter 记录每个键在窗口内的请求时间戳。
type Limiter struct {
	client  *redis.Client
	healthy func() bool
	now     func() time.Time
	log     *logger.Logger
}

// New 创建限流器。client 为nil时限流器总是放行。
func New(client *redis.Client, healthy func() bool, log *logger.Logger) *Limiter {
	if healthy == nil {
		healthy = func() bool { return true }
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{client: client, healthy: healthy, now: time.Now, log: log.With("component", "ratelimit")}
}

// memberID 生成有序集合成员：8字节纳秒时间戳 + 8字节随机数，URL安全Base64编码。
// 同一微秒内的多个请求不会相互覆盖。
func memberID(t time.Time) (string, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.UnixNano()))
	if _, err := rand.Read(b[8:16]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Allow 在 scope 下为 key 记录一次请求，并判断窗口内的请求数是否不超过 limit。
// 被拒绝的请求不占用配额。返回值中的计数是窗口内已被接受的请求数。
func (l *Limiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, int64, error) {
	if l == nil || l.client == nil || !l.healthy() {
		return true, 0, nil
	}

	now := l.now()
	redisKey := keyPrefix + scope + ":" + key
	minScore := float64(now.Add(-window).UnixMicro())
	member, err := memberID(now)
	if err != nil {
		return false, 0, fmt.Errorf("生成限流成员ID失败: %w", err)
	}

	// 清理过期记录、写入本次请求、刷新过期时间并取回计数，在一个事务中完成
	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, redisKey, window+time.Minute)
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("执行限流事务失败: %w", err)
	}

	count := countCmd.Val()
	if count > int64(limit) {
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			l.log.Warn("回滚被拒绝请求的限流记录失败", "key", redisKey, "error", err)
		}
		return false, count - 1, nil
	}
	return true, count, nil
}

// Middleware 按客户端IP限流，超过配额返回429。limit 不大于0时不限流。
// 限流器本身出错时放行请求，只记录日志。
func Middleware(l *Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || window <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if net.ParseIP(ip) == nil {
			c.Next()
			return
		}

		allowed, _, err := l.Allow(c.Request.Context(), scope, ip, limit, window)
		if err != nil {
			l.log.Warn("限流检查失败，放行请求", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
