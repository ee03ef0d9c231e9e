package comment

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移评论表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Comment{}); err != nil {
		return fmt.Errorf("无法迁移comment表: %w", err)
	}
	return nil
}
