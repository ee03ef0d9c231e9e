package user

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移用户表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("无法迁移user表: %w", err)
	}
	return nil
}
