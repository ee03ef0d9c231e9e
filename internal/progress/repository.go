package progress

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRecordNotFound 表示该用户尚未保存过该故事的进度。
var ErrRecordNotFound = errors.New("progress record not found")

// Repository 封装了对进度记录表的访问。
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回绑定到给定事务的仓库副本。
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByUserAndStory 读取某用户某故事的进度记录。
func (r *Repository) FindByUserAndStory(ctx context.Context, userID, storyID string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND story_id = ?", userID, storyID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询进度记录时出错: %w", err)
	}
	return &rec, nil
}

// Upsert 按 (user_id, story_id) 插入或覆盖进度记录。
func (r *Repository) Upsert(ctx context.Context, rec *Record) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "story_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ending_id", "choice_sequence", "trait_deltas",
			"last_updated_at", "previous_updated_at", "completed_at", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("保存进度记录时出错: %w", err)
	}
	return nil
}

// ListByUser 返回某用户的全部进度记录，按最后更新时间升序。
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	var records []Record
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated_at asc, id asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户进度时出错: %w", err)
	}
	return records, nil
}

// ListRecent 返回某用户最近更新的若干条进度记录。
func (r *Repository) ListRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	var records []Record
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated_at desc, id desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询最近进度时出错: %w", err)
	}
	return records, nil
}
