package metadata

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 创建元数据表。
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("迁移元数据表失败: %w", err)
	}
	return nil
}
