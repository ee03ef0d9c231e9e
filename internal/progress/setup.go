package progress

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移进度记录表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移progress表: %w", err)
	}
	return nil
}
