package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound 表示用户不存在。
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser 表示邮箱或用户名已被占用。
	ErrDuplicateUser = errors.New("email or username already exists")
)

// Repository 封装了对 users 表的全部访问。
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建用户仓库。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx 返回绑定到给定事务的仓库副本。
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create 插入一个新用户。
func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("无法创建新用户: %w", err)
	}
	return nil
}

// ExistsByEmailOrUsername 检查邮箱或用户名是否已被占用。
func (r *Repository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("检查用户是否存在时出错: %w", err)
	}
	return count > 0, nil
}

// FindByEmail 按邮箱查询用户。
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("按邮箱查询用户时出错: %w", err)
	}
	return &u, nil
}

// GetByID 按ID读取用户。
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("按ID查询用户时出错: %w", err)
	}
	return &u, nil
}

// GetByIDForUpdate 在事务中读取并锁定用户行（SQLite下锁子句会被忽略）。
func (r *Repository) GetByIDForUpdate(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("锁定用户时出错: %w", err)
	}
	return &u, nil
}

// ListActive 返回累计选择数不低于阈值的全部用户，供八卦生成批量处理。
func (r *Repository) ListActive(ctx context.Context, minTotalChoices int) ([]User, error) {
	var users []User
	err := r.db.WithContext(ctx).
		Where("total_choices >= ?", minTotalChoices).
		Order("id asc").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("查询活跃用户时出错: %w", err)
	}
	return users, nil
}

// UpdateProfile 更新个人资料字段。fields 为空时只校验用户存在。
func (r *Repository) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("更新个人资料时出错: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// StatsDelta 描述一次游玩事件对累计统计的影响。
type StatsDelta struct {
	// Choices 是本次新增的选择数，而不是提交的整条序列长度，见 progress.Recorder.Save。
	Choices        int
	StartedStory   bool
	UnlockedEnding string
	CompletedStory string
}

// ApplyStatsDelta 将增量写入用户记录。计数器使用表达式原地自增，
// 集合字段在调用方已持有行锁的前提下整体写回。
func (r *Repository) ApplyStatsDelta(ctx context.Context, u *User, delta StatsDelta) error {
	updates := map[string]interface{}{}
	if delta.Choices > 0 {
		updates["total_choices"] = gorm.Expr("total_choices + ?", delta.Choices)
	}
	if delta.StartedStory {
		updates["stories_started"] = gorm.Expr("stories_started + ?", 1)
	}
	if delta.UnlockedEnding != "" && !u.HasEnding(delta.UnlockedEnding) {
		u.EndingsUnlocked = append(u.EndingsUnlocked, delta.UnlockedEnding)
		updates["endings_unlocked"] = u.EndingsUnlocked
	}
	if delta.CompletedStory != "" && !u.HasCompleted(delta.CompletedStory) {
		u.StoriesCompleted = append(u.StoriesCompleted, delta.CompletedStory)
		updates["stories_completed"] = u.StoriesCompleted
		updates["stories_finished"] = gorm.Expr("stories_finished + ?", 1)
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("更新用户统计时出错: %w", err)
	}
	return nil
}
