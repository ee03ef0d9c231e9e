package gossip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FeedCacheKey 是缓存八卦列表的Redis Hash，字段为请求的 limit。
const FeedCacheKey = "gossip:feed"

// FeedCache 在Redis中缓存按 limit 区分的八卦列表。
// client 为nil时所有操作都直接跳过；healthy 报告不可用时跳过读写，但仍会尝试清除。
type FeedCache struct {
	client  *redis.Client
	ttl     time.Duration
	healthy func() bool
}

// NewFeedCache 创建列表缓存。
func NewFeedCache(client *redis.Client, ttl time.Duration, healthy func() bool) *FeedCache {
	if healthy == nil {
		healthy = func() bool { return true }
	}
	return &FeedCache{client: client, ttl: ttl, healthy: healthy}
}

func (c *FeedCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0 && c.healthy()
}

// Get 读取缓存的列表，未命中时第二个返回值为false。
func (c *FeedCache) Get(ctx context.Context, limit int) (*Feed, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	raw, err := c.client.HGet(ctx, FeedCacheKey, strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取八卦缓存失败: %w", err)
	}
	var feed Feed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, false, fmt.Errorf("解析八卦缓存失败: %w", err)
	}
	return &feed, true, nil
}

// Set 写入某个 limit 的列表，并刷新整个Hash的过期时间。
func (c *FeedCache) Set(ctx context.Context, limit int, feed *Feed) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("序列化八卦缓存失败: %w", err)
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, FeedCacheKey, strconv.Itoa(limit), raw)
	pipe.Expire(ctx, FeedCacheKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入八卦缓存失败: %w", err)
	}
	return nil
}

// Invalidate 清除所有缓存的列表，每次生成之后调用。
// 不看健康标记：标记可能滞后，漏删会让旧列表在恢复后继续被读到。
func (c *FeedCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, FeedCacheKey).Err(); err != nil {
		return fmt.Errorf("清除八卦缓存失败: %w", err)
	}
	return nil
}
