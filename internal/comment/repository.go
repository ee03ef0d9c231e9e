package comment

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCommentNotFound 表示评论不存在。
var ErrCommentNotFound = errors.New("comment not found")

// Repository 封装了对评论表的访问。
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, c *Comment) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("无法创建评论: %w", err)
	}
	return nil
}

// GetByID 读取一条评论。lock 为 true 时在事务中锁定该行。
func (r *Repository) GetByID(ctx context.Context, id string, lock bool) (*Comment, error) {
	var c Comment
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("查询评论时出错: %w", err)
	}
	return &c, nil
}

// ListByStory 返回某故事下最新的若干条评论。
func (r *Repository) ListByStory(ctx context.Context, storyID string, limit int) ([]Comment, error) {
	var comments []Comment
	err := r.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("查询故事评论时出错: %w", err)
	}
	return comments, nil
}

// SaveLikes 写回点赞数与点赞用户集合。
func (r *Repository) SaveLikes(ctx context.Context, c *Comment) error {
	err := r.db.WithContext(ctx).Model(&Comment{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"likes":    c.Likes,
		"liked_by": c.LikedBy,
	}).Error
	if err != nil {
		return fmt.Errorf("更新点赞时出错: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{}).Error; err != nil {
		return fmt.Errorf("删除评论时出错: %w", err)
	}
	return nil
}
