package metadata

import "time"

// Metadata 是一张简单的键值表，保存系统级的状态（如最近一期八卦）。
type Metadata struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Metadata) TableName() string {
	return "metadata"
}
