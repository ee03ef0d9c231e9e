package user

import (
	"slices"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 定义了用户账户的持久化模型。
// 累计统计数据直接挂在用户记录上，随每次游玩事件原地更新。
type User struct {
	// ID 是用户的主键，使用 UUID v7。
	ID string `gorm:"primarykey;type:varchar(36)"`

	Email        string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Username     string `gorm:"uniqueIndex;not null;type:varchar(64)"`
	PasswordHash string `gorm:"not null"`

	Bio    string
	Avatar *string

	// --- 累计统计 ---

	// TotalChoices 是用户在所有故事中做出选择的总次数。
	TotalChoices int `gorm:"not null;default:0;index"`

	// StoriesStarted 是开始过的故事数。
	StoriesStarted int `gorm:"not null;default:0"`

	// StoriesFinished 是至少达成过一个结局的故事数。
	StoriesFinished int `gorm:"not null;default:0"`

	// EndingsUnlocked 是 "故事ID-结局ID" 组合键的集合，不含重复项。
	EndingsUnlocked datatypes.JSONSlice[string]

	// StoriesCompleted 记录已完成的故事ID，用于保证 StoriesFinished 每个故事只计一次。
	StoriesCompleted datatypes.JSONSlice[string]

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// CumulativeStats 是用户累计统计数据的只读视图。
type CumulativeStats struct {
	TotalChoices    int      `json:"totalChoices"`
	StoriesStarted  int      `json:"storiesStarted"`
	StoriesFinished int      `json:"storiesFinished"`
	EndingsUnlocked []string `json:"endingsUnlocked"`
}

// Stats 返回用户当前的累计统计数据。
func (u *User) Stats() CumulativeStats {
	endings := make([]string, len(u.EndingsUnlocked))
	copy(endings, u.EndingsUnlocked)
	return CumulativeStats{
		TotalChoices:    u.TotalChoices,
		StoriesStarted:  u.StoriesStarted,
		StoriesFinished: u.StoriesFinished,
		EndingsUnlocked: endings,
	}
}

// HasEnding 判断某个结局组合键是否已解锁。
func (u *User) HasEnding(endingKey string) bool {
	return slices.Contains(u.EndingsUnlocked, endingKey)
}

// HasCompleted 判断某个故事是否已经计入完成数。
func (u *User) HasCompleted(storyID string) bool {
	return slices.Contains(u.StoriesCompleted, storyID)
}

// Profile 是对外展示的个人资料。
type Profile struct {
	Avatar           *string         `json:"avatar"`
	Bio              string          `json:"bio"`
	StoriesCompleted []string        `json:"storiesCompleted"`
	Achievements     []string        `json:"achievements"`
	Stats            CumulativeStats `json:"stats"`
}

// PublicUser 是返回给客户端的用户信息，不包含密码哈希。
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Profile   *Profile   `json:"profile,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ToPublic 转换为带完整资料的公开视图。
func (u *User) ToPublic() PublicUser {
	completed := make([]string, len(u.StoriesCompleted))
	copy(completed, u.StoriesCompleted)
	createdAt := u.CreatedAt
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Profile: &Profile{
			Avatar:           u.Avatar,
			Bio:              u.Bio,
			StoriesCompleted: completed,
			Achievements:     []string{},
			Stats:            u.Stats(),
		},
		CreatedAt: &createdAt,
	}
}
