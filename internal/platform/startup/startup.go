package startup

import (
	"fmt"

	"github.com/Marwakhot/chronicles/internal/comment"
	"github.com/Marwakhot/chronicles/internal/gossip"
	"github.com/Marwakhot/chronicles/internal/platform/logger"
	"github.com/Marwakhot/chronicles/internal/platform/metadata"
	"github.com/Marwakhot/chronicles/internal/progress"
	"github.com/Marwakhot/chronicles/internal/user"
	"gorm.io/gorm"
)

// migrations 按依赖顺序列出各模块的迁移函数
var migrations = []struct {
	name    string
	migrate func(db *gorm.DB) error
}{
	{"metadata", metadata.MigrateDB},
	{"user", user.MigrateDB},
	{"progress", progress.MigrateDB},
	{"comment", comment.MigrateDB},
	{"gossip", gossip.MigrateDB},
}

// InitializeApplication 是应用启动时执行的总入口，负责迁移所有表结构
func InitializeApplication(db *gorm.DB) error {
	logger.L.Info("开始应用初始化")

	for _, m := range migrations {
		if err := m.migrate(db); err != nil {
			return fmt.Errorf("模块 %s 迁移失败: %w", m.name, err)
		}
	}

	edition, err := metadata.GetLastGossipEdition(db)
	if err != nil {
		return fmt.Errorf("读取八卦期号失败: %w", err)
	}
	if edition == "" {
		logger.L.Info("尚未生成过八卦")
	} else {
		logger.L.Info("已加载最近一期八卦", "edition", edition)
	}

	logger.L.Info("应用初始化完成")
	return nil
}
