package progress

import (
	"time"

	"gorm.io/datatypes"
)

// Record 是某个用户对某个故事的一次游玩状态。
// 每个 (UserID, StoryID) 组合至多一条，后续保存覆盖前一次的状态。
type Record struct {
	ID uint `gorm:"primarykey" json:"id"`

	UserID  string `gorm:"not null;type:varchar(36);uniqueIndex:idx_progress_user_story" json:"userId"`
	StoryID string `gorm:"not null;type:varchar(128);uniqueIndex:idx_progress_user_story" json:"storyId"`

	// EndingID 为空表示故事尚未结束。
	EndingID *string `json:"endingId"`

	// ChoiceSequence 是到目前为止按顺序做出的选择。
	ChoiceSequence datatypes.JSONSlice[string] `json:"choices"`

	// TraitDeltas 是故事自定义的特质数值，键名因故事而异。
	TraitDeltas datatypes.JSONMap `json:"stats"`

	LastUpdatedAt time.Time `gorm:"not null;index" json:"lastUpdated"`
	// PreviousUpdatedAt 是被本次保存覆盖的那次更新时间，首次保存时为空。
	PreviousUpdatedAt *time.Time `json:"-"`
	CompletedAt       *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定进度记录的表名
func (Record) TableName() string {
	return "progress_records"
}
