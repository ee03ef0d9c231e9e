package gossip

import (
	"context"
	"fmt"

	"github.com/Marwakhot/chronicles/internal/platform/config"
	"gorm.io/gorm"
)

const (
	// RetentionPrune 追加新条目后，按时间裁剪掉超出上限的旧条目。
	RetentionPrune = "prune"
	// RetentionReplace 清空旧条目，整体替换为新一批。
	RetentionReplace = "replace"

	insertBatchSize = 100
)

// Store 负责八卦条目的持久化与留存策略。
type Store struct {
	db     *gorm.DB
	policy config.RetentionConfig
	rng    Random
}

// NewStore 创建八卦存储。未知的留存策略按 prune 处理。
func NewStore(db *gorm.DB, policy config.RetentionConfig, rng Random) *Store {
	if policy.Policy != RetentionReplace {
		policy.Policy = RetentionPrune
	}
	if rng == nil {
		rng = NewTimeSeededRandom()
	}
	return &Store{db: db, policy: policy, rng: rng}
}

// Policy 返回生效中的留存策略名。
func (s *Store) Policy() string {
	return s.policy.Policy
}

// Save 按配置的策略写入一批条目，返回实际写入的条数。
func (s *Store) Save(ctx context.Context, items []Item) (int, error) {
	if s.policy.Policy == RetentionReplace {
		return s.replace(ctx, items)
	}
	return s.prune(ctx, items)
}

// prune 截取本批前 BatchLimit 条插入，再删除超出 MaxItems 的最旧条目。
func (s *Store) prune(ctx context.Context, items []Item) (int, error) {
	if s.policy.BatchLimit > 0 && len(items) > s.policy.BatchLimit {
		items = items[:s.policy.BatchLimit]
	}
	if s.policy.MaxItems > 0 && len(items) > s.policy.MaxItems {
		items = items[:s.policy.MaxItems]
	}
	if err := s.InsertMany(ctx, items); err != nil {
		return 0, err
	}
	if s.policy.MaxItems <= 0 {
		return len(items), nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&Item{}).
		Order("generated_at desc, id desc").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("查询待裁剪的八卦时出错: %w", err)
	}
	if len(ids) > s.policy.MaxItems {
		if err := s.DeleteByIDs(ctx, ids[s.policy.MaxItems:]); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

// replace 清空旧条目，将新一批按需洗牌并截断到 MaxItems 后写入。
// 清空与写入之间存在短暂的空窗口。
func (s *Store) replace(ctx context.Context, items []Item) (int, error) {
	batch := make([]Item, len(items))
	copy(batch, items)
	if s.policy.Shuffle {
		s.rng.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	}
	if s.policy.MaxItems > 0 && len(batch) > s.policy.MaxItems {
		batch = batch[:s.policy.MaxItems]
	}

	if err := s.DeleteAll(ctx); err != nil {
		return 0, err
	}
	if err := s.InsertMany(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// InsertMany 批量写入条目。
func (s *Store) InsertMany(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&items, insertBatchSize).Error; err != nil {
		return fmt.Errorf("写入八卦条目时出错: %w", err)
	}
	return nil
}

// DeleteByIDs 按ID批量删除条目。
func (s *Store) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&Item{}).Error; err != nil {
		return fmt.Errorf("删除八卦条目时出错: %w", err)
	}
	return nil
}

// DeleteAll 删除全部条目。
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Item{}).Error; err != nil {
		return fmt.Errorf("清空八卦条目时出错: %w", err)
	}
	return nil
}

// Recent 返回最多 limit 条条目。prune 策略下按生成时间倒序；
// replace 策略下按写入顺序返回当前这一批（可能是洗牌后的顺序）。
func (s *Store) Recent(ctx context.Context, limit int) ([]Item, error) {
	order := "generated_at desc, id desc"
	if s.policy.Policy == RetentionReplace {
		order = "id asc"
	}
	items := make([]Item, 0, limit)
	err := s.db.WithContext(ctx).Order(order).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("读取八卦条目时出错: %w", err)
	}
	return items, nil
}

// Count 返回当前存储的条目数。
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Item{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计八卦条目时出错: %w", err)
	}
	return n, nil
}
