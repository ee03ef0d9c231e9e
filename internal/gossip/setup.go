package gossip

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移八卦条目表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("无法迁移gossip表: %w", err)
	}
	return nil
}
